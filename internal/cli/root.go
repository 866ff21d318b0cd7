// Package cli wires configuration, stores and services into the
// marketplace commands.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/logging"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "marketplace",
	Short:         "Service marketplace API",
	Long:          `Providers list services, customers book and review them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("marketplace version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads .env and the environment, validates the result and
// configures logging.  Missing required variables exit the process.
func loadConfig() (config.Config, zerolog.Logger, error) {
	config.LoadDotEnv()
	cfg := config.Load()
	logging.Setup(config.LoadLogConfig(), cfg.Env)
	log := logging.NewLogger("cli")
	if err := cfg.Validate(); err != nil {
		return config.Config{}, log, err
	}
	return cfg, log, nil
}
