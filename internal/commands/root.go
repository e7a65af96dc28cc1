// Package commands defines the findash command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"findash/internal/cli"
	"findash/internal/log"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	envFile  string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "findash",
		Short:   "Small-business finance dashboard and notifier",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.envFile != "" {
				cli.LoadEnvFile(opts.envFile)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newCheckLateCommand(opts),
		newReportCommand(opts),
		newRemindCommand(opts),
		newStatusCommand(opts),
		newExportCommand(opts),
	)

	return rootCmd
}

// loadApp reads the configuration and assembles the application. The
// caller closes it.
func loadApp(cmd *cobra.Command, opts *rootOptions) (*cli.App, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := cli.SetupLogger(level)

	app, err := cli.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("Failed to start", log.FieldError, err)
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return app, nil
}
