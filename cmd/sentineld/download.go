package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/groblegark/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Pull events and settings written by other devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, closeAll, err := buildComponents(ctx)
		if err != nil {
			return err
		}
		defer closeAll()

		result, err := c.engine.Download(ctx)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Imported events:  %s\n", ui.RenderOK(fmt.Sprintf("%d", result.Events)))
		fmt.Printf("Duplicates:       %s\n", ui.RenderMuted(fmt.Sprintf("%d", result.Conflicts)))
		if result.SettingsUpdated {
			fmt.Printf("Settings:         %s\n", ui.RenderWarn("updated from remote"))
		}
		return nil
	},
}
