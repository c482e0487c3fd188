package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/sentinel/internal/config"
	"github.com/groblegark/sentinel/internal/ui"
)

var configureCmd = &cobra.Command{
	Use:   "configure <bucket>",
	Short: "Write the remote bucket profile used for cloud sync",
	Long: `Writes the credentials file consulted at startup when
SENTINEL_S3_BUCKET is not set. Environment variables always win over
the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, _ := cmd.Flags().GetString("endpoint")
		region, _ := cmd.Flags().GetString("region")
		prefix, _ := cmd.Flags().GetString("prefix")

		creds := config.Credentials{
			Bucket:   args[0],
			Endpoint: endpoint,
			Region:   region,
			Prefix:   prefix,
		}
		if err := config.SaveCredentials(creds); err != nil {
			return fmt.Errorf("write credentials: %w", err)
		}

		fmt.Printf("Bucket:   %s\n", ui.RenderOK(creds.Bucket))
		if creds.Endpoint != "" {
			fmt.Printf("Endpoint: %s\n", ui.RenderMuted(creds.Endpoint))
		}
		if creds.Region != "" {
			fmt.Printf("Region:   %s\n", ui.RenderMuted(creds.Region))
		}
		if creds.Prefix != "" {
			fmt.Printf("Prefix:   %s\n", ui.RenderMuted(creds.Prefix))
		}
		return nil
	},
}

func init() {
	configureCmd.Flags().String("endpoint", "", "S3-compatible endpoint URL (enables path-style addressing)")
	configureCmd.Flags().String("region", "", "bucket region")
	configureCmd.Flags().String("prefix", "", "key prefix namespacing this installation")
}
