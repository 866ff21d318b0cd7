package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/logging"
	"github.com/iliyamo/service-marketplace/internal/queue"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Append booking events to the booking log",
	Long: `Consumes BookingEvent messages from BROKER_QUEUE and appends one line
per event to <BOOKING_LOG_DIR>/booking.log.  Reconnects with backoff until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runConsume,
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv()
	logging.Setup(config.LoadLogConfig(), os.Getenv("APP_ENV"))
	log := logging.NewLogger("consumer")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := config.LoadBrokerConfig()
	log.Info().Str("queue", broker.Queue).Str("log_dir", broker.LogDir).Msg("consumer starting")
	return ignoreCancel(queue.NewConsumer(broker, log).Run(ctx))
}
