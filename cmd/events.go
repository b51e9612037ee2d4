package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lessslie/olimpo-checkin/types"
	"github.com/lessslie/olimpo-checkin/wsreader"
	"github.com/spf13/cobra"
)

const (
	wsRetry = 5 * time.Second
)

var (
	kioskUrl string
	insecure bool

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Follow the scan events of a running kiosk",
		RunE:  followEvents,
	}
)

func init() {
	eventsCmd.Flags().StringVar(&kioskUrl, "kioskUrl", "http://localhost:8080", "Url of the running kiosk")
	eventsCmd.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS verification")

	rootCmd.AddCommand(eventsCmd)
}

// This function doesn't return until interrupted. If it fails to connect to
// the kiosk, or if the connection dies, it retries after wsRetry.
func followEvents(cmd *cobra.Command, args []string) error {
	u, err := url.Parse(kioskUrl)
	if err != nil {
		return err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: insecure,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	show := func(ev types.ScanEvent) {
		if err := enc.Encode(ev); err != nil {
			log.Printf("error printing event: %s", err)
		}
	}

	for {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}

		wr, err := wsreader.New(ctx, u, httpClient)
		if err != nil {
			log.Printf("error connecting to kiosk: %s", err)
			sleep(ctx, wsRetry)
			continue
		}

		if err := wr.StartReader(ctx, show); err != nil {
			log.Printf("websocket error: %s", err)
			sleep(ctx, wsRetry)
			continue
		}

		log.Print("websocket closed gracefully")
		sleep(ctx, wsRetry)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
