package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lessslie/olimpo-checkin/scan"
	"github.com/lessslie/olimpo-checkin/types"
	"github.com/spf13/cobra"
)

var (
	scanTimeout time.Duration

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Run one scan session and print its outcome",
		RunE:  scanOnce,
	}
)

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", time.Minute, "Give up if no code is seen in this long")
	addKioskFlags(scanCmd.Flags())

	rootCmd.AddCommand(scanCmd)
}

// printer ends a one-shot session: it waits for an outcome or a terminal
// status.
type printer struct {
	outcomes chan types.Outcome
	failed   chan struct{}
}

func (p printer) StatusChanged(id string, from, to scan.Status) {
	if from != to {
		log.Printf("session %s: %s -> %s", id, from, to)
	}
	if to == scan.StatusFailed {
		close(p.failed)
	}
}

func (p printer) OutcomeReady(id string, o types.Outcome) {
	p.outcomes <- o
}

func scanOnce(cmd *cobra.Command, args []string) error {
	k, err := newKiosk()
	if err != nil {
		return err
	}
	defer k.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	p := printer{outcomes: make(chan types.Outcome, 1), failed: make(chan struct{})}
	loop := scan.New(k.source, k.decoder, k.coordinator, scan.WithInterval(interval), scan.WithObserver(p))

	if _, err := loop.Start(ctx); err != nil {
		return err
	}
	defer loop.Stop()

	select {
	case o := <-p.outcomes:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	case <-p.failed:
		return fmt.Errorf("camera unavailable")
	case <-ctx.Done():
		return fmt.Errorf("no code scanned: %w", ctx.Err())
	}
}
