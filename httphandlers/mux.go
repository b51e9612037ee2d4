package httphandlers

import (
	"context"
	"net/http"

	"github.com/lessslie/olimpo-checkin/scan"
	"github.com/lessslie/olimpo-checkin/types"
)

// Scanner is the camera loop as seen from the display.
type Scanner interface {
	Start(ctx context.Context) (string, error)
	Stop()
	Status() scan.Status
	Session() string
}

// Dispatcher checks in a code that was decoded elsewhere, e.g. typed in or
// read by a handheld reader.
type Dispatcher interface {
	HandleRaw(ctx context.Context, raw string) types.Outcome
}

type handlers struct {
	ctx      context.Context
	scanner  Scanner
	checkin  Dispatcher
	hub      *Hub
	outcomes scan.Observer
}

// NewMux serves the kiosk display. Scan sessions started over HTTP live
// until ctx is done, not just for the request that started them. Outcomes
// of codes posted to /checkin go to outcomes, or only to the hub when
// outcomes is nil.
func NewMux(ctx context.Context, scanner Scanner, checkin Dispatcher, hub *Hub, outcomes scan.Observer) *http.ServeMux {
	if outcomes == nil && hub != nil {
		outcomes = hub
	}
	h := handlers{ctx: ctx, scanner: scanner, checkin: checkin, hub: hub, outcomes: outcomes}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan/start", h.startRequest)
	mux.HandleFunc("POST /scan/stop", h.stopRequest)
	mux.HandleFunc("GET /scan/status", h.statusRequest)
	mux.HandleFunc("GET /scan/events", h.eventsRequest)
	mux.HandleFunc("POST /checkin", h.checkinRequest)
	return mux
}
