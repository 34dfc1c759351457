// Package cmd defines and implements the CLI commands for the
// laborsync executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/config"
	"github.com/JakeFAU/laborsync/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laborsync",
		Short: "Mirrors BLS labor statistics and runs analytics over them",
		Long: `laborsync keeps a blob-store mirror of the BLS productivity time
series in step with the published directory listing, ingests the US
population dataset, and computes summary reports over both. It can run
each pipeline once from the command line or serve them over HTTP with
scheduled and notification-driven triggers.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus LABORSYNC_* env)")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newAnalyticsCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvironment reads config and builds the root logger shared by all
// subcommands.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
