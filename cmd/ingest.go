package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run the full ingestion pipeline once",
		Long: `Runs the directory sync followed by the population dataset ingest.
The population dataset is canonicalized before fingerprinting, so a
re-serialized but semantically identical upstream response does not
trigger a re-upload.`,
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

			result := svc.ingestion.Run(cmd.Context())
			if !result.Success {
				return errors.New("ingestion pipeline failed")
			}
			return nil
		},
	}
}
