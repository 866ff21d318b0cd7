package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/repository/mongostore"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply or revert schema migrations",
	Long: `Runs the embedded MySQL migrations.  With STORE_DRIVER=mongo, "up"
creates the collection indexes instead.  Without an argument "up" is
assumed.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(database.Up), string(database.Down)},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "number of migrations to apply or revert (0 = all)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dir := database.Up
	if len(args) == 1 {
		d, err := database.ParseDirection(args[0])
		if err != nil {
			return err
		}
		dir = d
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Migrate(db, dir, migrateSteps, log)

	case config.DriverMongo:
		if dir == database.Down {
			return errors.New("mongo indexes cannot be migrated down")
		}
		client, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.RequestTimeout)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		if err := mongostore.EnsureIndexes(ctx, client.Database(cfg.MongoDB)); err != nil {
			return err
		}
		log.Info().Str("database", cfg.MongoDB).Msg("mongo indexes ensured")
		return nil
	}
	log.Info().Str("store", cfg.StoreDriver).Msg("nothing to migrate")
	return nil
}
