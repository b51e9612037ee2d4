package cmd

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/lessslie/olimpo-checkin/backend"
	"github.com/lessslie/olimpo-checkin/checkin"
	"github.com/lessslie/olimpo-checkin/db"
	"github.com/lessslie/olimpo-checkin/frame"
	"github.com/lessslie/olimpo-checkin/identity"
	"github.com/lessslie/olimpo-checkin/qr"
	"github.com/lessslie/olimpo-checkin/scan"
	"github.com/spf13/pflag"
)

var (
	// flags
	backendUrl     string
	token          string
	tokenFile      string
	jwtSecret      string
	member         string
	camera         string
	cameraToken    string
	width          int
	height         int
	interval       time.Duration
	requestTimeout time.Duration
	tryHarder      bool
	useHolds       bool
)

func addKioskFlags(pf *pflag.FlagSet) {
	pf.StringVar(&backendUrl, "backendUrl", "http://localhost:3000/api", "Base url of the gym backend")
	pf.StringVar(&token, "token", "", "Session token of the signed in member")
	pf.StringVar(&tokenFile, "tokenFile", "", "File holding the session token, re-read on every scan")
	pf.StringVar(&jwtSecret, "jwtSecret", "", "HS256 secret to verify session tokens with")
	pf.StringVar(&member, "member", "", "Check in this member id instead of the token's")
	pf.StringVar(&camera, "camera", "", "Snapshot url of the camera, or a directory of frames")
	pf.StringVar(&cameraToken, "cameraToken", "", "Bearer token for the camera")
	pf.IntVar(&width, "width", frame.DefaultWidth, "Requested frame width")
	pf.IntVar(&height, "height", frame.DefaultHeight, "Requested frame height")
	pf.DurationVar(&interval, "interval", scan.DefaultInterval, "Time between frames")
	pf.DurationVar(&requestTimeout, "requestTimeout", checkin.DefaultTimeout, "Backend request timeout")
	pf.BoolVar(&tryHarder, "tryHarder", false, "Spend more time per frame looking for codes")
	pf.BoolVar(&useHolds, "holds", true, "Remember weekly quota refusals until the week ends")
}

// kiosk is everything a scan session needs.
type kiosk struct {
	source      frame.Source
	decoder     *qr.Decoder
	coordinator *checkin.Coordinator
	holds       *db.DB
}

func newKiosk() (*kiosk, error) {
	source, err := newSource()
	if err != nil {
		return nil, err
	}
	coordinator, holds, err := newCoordinator()
	if err != nil {
		return nil, err
	}
	return &kiosk{
		source:      source,
		decoder:     qr.NewDecoder(tryHarder),
		coordinator: coordinator,
		holds:       holds,
	}, nil
}

func (k *kiosk) Close() {
	if k.holds == nil {
		return
	}
	if err := k.holds.Close(); err != nil {
		log.Printf("error closing hold store: %s", err)
	}
}

func newSource() (frame.Source, error) {
	if camera == "" {
		return nil, fmt.Errorf("no camera configured")
	}
	if strings.HasPrefix(camera, "http://") || strings.HasPrefix(camera, "https://") {
		u, err := url.Parse(camera)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", camera, err)
		}
		return frame.NewSnapshot(u, cameraToken, width, height), nil
	}
	return frame.NewDir(camera, width, height), nil
}

func newCoordinator() (*checkin.Coordinator, *db.DB, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading timezone %q: %w", tz, err)
	}

	u, err := url.Parse(backendUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", backendUrl, err)
	}

	var secret []byte
	if jwtSecret != "" {
		secret = []byte(jwtSecret)
	}
	session := identity.NewToken(token, secret)
	if tokenFile != "" {
		session = identity.NewTokenFile(tokenFile, secret)
	}

	var id identity.Provider = session
	if member != "" {
		id = identity.Static(member)
	}

	opts := []checkin.Option{checkin.WithTimeout(requestTimeout)}
	var holds *db.DB
	if useHolds {
		holds, err = db.New(dsn, tz)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening hold store: %w", err)
		}
		opts = append(opts, checkin.WithHolds(holds))
	}

	client := backend.New(u, session, loc, requestTimeout)
	return checkin.New(client, id, opts...), holds, nil
}
