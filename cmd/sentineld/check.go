package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/groblegark/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the remote for reachability and write access",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, closeAll, err := buildComponents(ctx)
		if err != nil {
			return err
		}
		defer closeAll()

		ok, detail := c.engine.TestConnection(ctx)

		if jsonOutput {
			out := map[string]any{"ok": ok, "detail": detail}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
		} else if ok {
			fmt.Printf("Remote: %s\n", ui.RenderOK(detail))
		} else {
			fmt.Printf("Remote: %s\n", ui.RenderError(detail))
		}

		if !ok {
			return fmt.Errorf("connection check failed")
		}
		return nil
	},
}
