package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/logging"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/router"
	"github.com/iliyamo/service-marketplace/internal/service"
)

const shutdownTimeout = 10 * time.Second

var (
	serveMigrate bool
	serveConsume bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API on APP_PORT.  Booking events are published to
RabbitMQ when BROKER_ENABLED is set; with --consume the booking log
consumer runs in the same process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply schema migrations before serving")
	serveCmd.Flags().BoolVar(&serveConsume, "consume", false, "also run the booking event consumer")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitoring.Init()

	store, err := database.OpenStore(ctx, cfg, serveMigrate, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	broker := config.LoadBrokerConfig()
	var events service.EventPublisher = service.NoopPublisher{}
	if broker.Enabled {
		pub := queue.NewPublisher(broker, logging.NewLogger("publisher"))
		defer pub.Close()
		events = pub
	}

	rl := config.LoadRateLimitConfig()
	var rdb *redis.Client
	if rl.Enabled {
		if rdb = config.NewRedisClient(); rdb == nil {
			log.Warn().Msg("redis unreachable; rate limiting per process")
		} else {
			defer rdb.Close()
		}
	}
	limiter := middleware.NewTokenBucket(rl, rdb, logging.NewLogger("ratelimit"))

	e := router.New(buildHandlers(cfg, store, events), cfg.JWTSecret, limiter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return e.Shutdown(sctx)
	})
	if serveConsume && broker.Enabled {
		g.Go(func() error {
			return ignoreCancel(queue.NewConsumer(broker, logging.NewLogger("consumer")).Run(gctx))
		})
	}
	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
