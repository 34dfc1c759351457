package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Run the analytics reports once and print the results",
		Long: `Loads the mirrored time-series fragments and the population dataset
from the blob store, then computes the population statistics, best-year
ranking, and unified join reports. Reports fail independently; the
command fails unless all three succeed.`,
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

			result := svc.analytics.Run(cmd.Context())
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("render result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !result.Success {
				return errors.New("analytics pipeline failed")
			}
			return nil
		},
	}
}
