package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/playground/internal/events"
	"github.com/michaelbrown/playground/internal/present"
	"github.com/michaelbrown/playground/internal/runner"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow runs published to NATS",
	Long: `Subscribe to the run progress other playground processes publish to NATS
and print each finished test case. Requires nats.url to be configured.

Examples:
  PLAYGROUND_NATS_URL=nats://localhost:4222 playground watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.NATS.URL == "" {
		return errors.New("nats.url is not configured")
	}
	nc, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	out := cmd.OutOrStdout()
	color := isTerminal(out)
	printers := make(map[string]*progressPrinter)

	// NATS delivers a subscription's messages one at a time
	sub, err := events.Watch(nc, cfg.NATS.Subject, logger, func(s runner.Snapshot) {
		p, ok := printers[s.RunID]
		if !ok {
			fmt.Fprintf(out, "Run %s (%s, %d cases)\n", shortID(s.RunID), s.Mode, s.Total)
			p = newProgressPrinter(out, color)
			printers[s.RunID] = p
		}
		p.update(s)
		if s.Done {
			present.RenderSummaryText(out, present.FromSnapshot(s), color)
			delete(printers, s.RunID)
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(out, "Watching %s.* on %s (Ctrl+C to stop)\n", cfg.NATS.Subject, cfg.NATS.URL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}
