package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/lessslie/olimpo-checkin/db"
	"github.com/lessslie/olimpo-checkin/httphandlers"
	"github.com/lessslie/olimpo-checkin/scan"
	"github.com/lessslie/olimpo-checkin/sender"
	"github.com/lessslie/olimpo-checkin/types"
	"github.com/spf13/cobra"
)

var (
	// flags
	httpAddr     string
	secure       bool
	cert         string
	key          string
	slackToken   string
	slackChannel string
	slackSilent  bool
	webhookUrl   string
	purgeCron    string

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Run the kiosk: camera loop, display server and announcements",
		RunE:  start,
	}
)

func init() {
	pf := startCmd.PersistentFlags()
	pf.StringVar(&httpAddr, "httpAddr", ":8080", "Address to listen on")
	pf.BoolVar(&secure, "secure", false, "Listen using TLS")
	pf.StringVar(&cert, "cert", "certs/cert.pem", "Path to the certificate")
	pf.StringVar(&key, "key", "certs/key.pem", "Path to the private key")
	pf.StringVar(&slackToken, "slackToken", "", "Slack token")
	pf.StringVar(&slackChannel, "slackChannel", "", "Slack channel")
	pf.BoolVar(&slackSilent, "slackSilent", false, "Log slack messages instead of posting them")
	pf.StringVar(&webhookUrl, "webhookUrl", "", "Url to post every outcome to")
	pf.StringVar(&purgeCron, "purgeCron", db.DefaultPurgeSchedule, "When to drop ended holds, cron syntax")
	addKioskFlags(pf)

	rootCmd.AddCommand(startCmd)
}

func start(cmd *cobra.Command, args []string) error {
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}

	k, err := newKiosk()
	if err != nil {
		return err
	}
	defer k.Close()

	if k.holds != nil {
		reaper, err := k.holds.StartReaper(purgeCron)
		if err != nil {
			return err
		}
		defer reaper.Stop()
	}

	senders, err := initSenders()
	if err != nil {
		return err
	}
	notifier := sender.NewNotifier(senders...)
	hub := httphandlers.NewHub()
	observer := scan.Observers(hub, notifier)

	loop := scan.New(
		k.source,
		k.decoder,
		k.coordinator,
		scan.WithInterval(interval),
		scan.WithObserver(observer),
	)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: httphandlers.NewMux(ctx, loop, k.coordinator, hub, observer),
	}
	wg.Add(1)
	go startHttpServer(&wg, httpServer)

	s := <-done
	log.Print("Received signal ", s)

	loop.Stop()
	cancel()
	if err := httpServer.Close(); err != nil {
		log.Printf("error closing http server: %s", err)
	}

	wg.Wait()
	notifier.Wait()
	return nil
}

func initSenders() ([]types.Sender, error) {
	var senders []types.Sender
	if slackChannel != "" {
		senders = append(senders, sender.NewSlack(slackChannel, slackToken, slackSilent))
	}
	if webhookUrl != "" {
		u, err := url.Parse(webhookUrl)
		if err != nil {
			return nil, err
		}
		senders = append(senders, sender.NewWebhook(u))
	}
	return senders, nil
}

// This function doesn't return until s is closed, or on error calling
// ListenAndServe
func startHttpServer(wg *sync.WaitGroup, s *http.Server) {
	defer wg.Done()
	var err error

	log.Printf("Server listening on %q", s.Addr)
	if secure {
		log.Printf("Listener will use TLS")
		err = s.ListenAndServeTLS(cert, key)
	} else {
		err = s.ListenAndServe()
	}

	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("error starting http server: ", err)
	} else {
		log.Print("http server closed gracefully")
	}
}
