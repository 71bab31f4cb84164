package cli

import (
	"fmt"
	"os"

	"cmcs-backend/internal/config"
	"cmcs-backend/internal/logger"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	LogJSON  bool

	cfg *config.Config
	log logger.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "cmcs",
		Short:         "Contract lecturer claim management service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.LogLevel
			}
			if cmd.Flags().Changed("log-json") {
				cfg.LogJSON = opts.LogJSON
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger.Init(&logger.Config{
				Level:  logger.ParseLevel(cfg.LogLevel),
				Output: os.Stderr,
				JSON:   cfg.LogJSON,
			})
			opts.cfg = cfg
			opts.log = logger.GetDefault()
			for _, w := range cfg.Warnings() {
				opts.log.Warn(w)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "emit logs as JSON")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}
