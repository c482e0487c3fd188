package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/groblegark/sentinel/internal/config"
	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [topic]",
	Short: "Tail daemon events from the bus",
	Long: `Tail daemon events from the bus.

Subscribes to the given topic (default "sentinel.>", all events) and prints
each event as it arrives. Requires SENTINEL_NATS_URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := "sentinel.>"
		if len(args) > 0 {
			topic = args[0]
		}

		natsURL := os.Getenv("SENTINEL_NATS_URL")
		if natsURL == "" {
			cfg, err := config.Load()
			if err == nil {
				natsURL = cfg.NATSURL
			}
		}
		if natsURL == "" {
			return fmt.Errorf("SENTINEL_NATS_URL is not set")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats: disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats: reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if !jsonOutput {
			fmt.Printf("Watching %s (ctrl-c to stop)\n", ui.RenderMuted(topic))
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				printBusEvent(msg)
			}
		}
	},
}

// printBusEvent prints one raw bus payload, compacted for the terminal or
// passed through verbatim with --json.
func printBusEvent(payload []byte) {
	if jsonOutput {
		fmt.Println(string(payload))
		return
	}

	ts := time.Now().Format("15:04:05")
	var compact map[string]any
	if err := json.Unmarshal(payload, &compact); err != nil {
		fmt.Printf("%s %s\n", ui.RenderMuted(ts), string(payload))
		return
	}
	line, err := json.Marshal(compact)
	if err != nil {
		fmt.Printf("%s %s\n", ui.RenderMuted(ts), string(payload))
		return
	}
	fmt.Printf("%s %s\n", ui.RenderMuted(ts), string(line))
}
