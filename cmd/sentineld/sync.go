package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/groblegark/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass against the remote",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, closeAll, err := buildComponents(ctx)
		if err != nil {
			return err
		}
		defer closeAll()

		if !c.engine.Configured() {
			return fmt.Errorf("cloud sync is not configured (set SENTINEL_S3_BUCKET)")
		}

		// Pick up events persisted while sync was disabled or interrupted.
		swept, err := c.recorder.ResyncUnsynced(ctx)
		if err != nil {
			return fmt.Errorf("resync sweep: %w", err)
		}
		if swept > 0 {
			c.logger.Info("re-enqueued unsynced events", "count", swept)
		}

		status := c.engine.SyncNow(ctx)

		if jsonOutput {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Synced: %s\n", ui.RenderOK(fmt.Sprintf("%d", status.Synced)))
		if status.Failed > 0 {
			fmt.Printf("Failed: %s\n", ui.RenderError(fmt.Sprintf("%d", status.Failed)))
			for _, e := range status.Errors {
				fmt.Printf("  %s\n", ui.RenderMuted(e))
			}
		}
		return nil
	},
}
