package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/groblegark/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete synced events older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, closeAll, err := buildComponents(ctx)
		if err != nil {
			return err
		}
		defer closeAll()

		days := cleanupDays
		if days == 0 {
			settings, err := c.recorder.GetSettings(ctx)
			if err != nil {
				return fmt.Errorf("get settings: %w", err)
			}
			days = settings.RetentionDays
		}
		if days <= 0 {
			return fmt.Errorf("retention period must be positive (got %d days)", days)
		}

		result, err := c.engine.Cleanup(ctx, days)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Local deleted:  %s\n", ui.RenderOK(fmt.Sprintf("%d", result.LocalDeleted)))
		fmt.Printf("Remote deleted: %s\n", ui.RenderOK(fmt.Sprintf("%d", result.RemoteDeleted)))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention period in days (default: configured retention)")
}
