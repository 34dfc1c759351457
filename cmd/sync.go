package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Mirror the remote time-series directory into the blob store once",
		Long: `Fetches the remote directory listing, uploads new or changed files,
skips unchanged ones, and removes stored files no longer present
upstream. The deletion pass is skipped when the listing fails or comes
back empty.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := buildServices(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			stats, err := svc.syncer.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			logger.Info("sync finished",
				zap.Int("uploaded", stats.Uploaded),
				zap.Int("skipped", stats.Skipped),
				zap.Int("failed", stats.Failed),
				zap.Int("deleted", stats.Deleted),
			)
			return nil
		},
	}
}
