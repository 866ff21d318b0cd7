package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/repository/memory"
	"github.com/iliyamo/service-marketplace/internal/repository/mongostore"
)

// OpenStore connects the backend named by cfg.StoreDriver.  With migrate
// set, the MySQL schema is brought up to date and the Mongo indexes are
// ensured before the store is returned.
func OpenStore(ctx context.Context, cfg config.Config, migrate bool, log zerolog.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := Open(ctx, cfg)
		if err != nil {
			return repository.Store{}, fmt.Errorf("open mysql: %w", err)
		}
		if migrate {
			if err := Migrate(db, Up, 0, log); err != nil {
				db.Close()
				return repository.Store{}, err
			}
		}
		log.Info().Str("host", cfg.DBHost).Str("database", cfg.DBName).Msg("mysql store ready")
		return repository.NewMySQLStore(db), nil

	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.RequestTimeout)
		if err != nil {
			return repository.Store{}, fmt.Errorf("open mongo: %w", err)
		}
		db := client.Database(cfg.MongoDB)
		if migrate {
			if err := mongostore.EnsureIndexes(ctx, db); err != nil {
				_ = client.Disconnect(ctx)
				return repository.Store{}, fmt.Errorf("mongo indexes: %w", err)
			}
		}
		log.Info().Str("database", cfg.MongoDB).Msg("mongo store ready")
		return mongostore.New(client, db), nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.New(), nil
	}
	return repository.Store{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
