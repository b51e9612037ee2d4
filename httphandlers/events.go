package httphandlers

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/lessslie/olimpo-checkin/scan"
	"github.com/lessslie/olimpo-checkin/types"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 5 * time.Second
)

// Hub streams scan events to every connected display. A display that falls
// behind loses events rather than slowing down the scan loop.
type Hub struct {
	mu   sync.Mutex
	subs map[chan types.ScanEvent]struct{}
	now  func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: map[chan types.ScanEvent]struct{}{}, now: time.Now}
}

func (hub *Hub) StatusChanged(sessionID string, from, to scan.Status) {
	hub.broadcast(types.ScanEvent{
		Session: sessionID,
		From:    string(from),
		Status:  string(to),
		At:      hub.now(),
	})
}

func (hub *Hub) OutcomeReady(sessionID string, o types.Outcome) {
	hub.broadcast(types.ScanEvent{
		Session: sessionID,
		Status:  string(scan.StatusDetected),
		Outcome: &o,
		At:      hub.now(),
	})
}

func (hub *Hub) broadcast(ev types.ScanEvent) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for ch := range hub.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("display too slow, dropping %s event", ev.Status)
		}
	}
}

func (hub *Hub) subscribe() chan types.ScanEvent {
	ch := make(chan types.ScanEvent, subscriberBuffer)
	hub.mu.Lock()
	hub.subs[ch] = struct{}{}
	hub.mu.Unlock()
	return ch
}

func (hub *Hub) unsubscribe(ch chan types.ScanEvent) {
	hub.mu.Lock()
	delete(hub.subs, ch)
	hub.mu.Unlock()
}

// Subscribers returns how many displays are connected.
func (hub *Hub) Subscribers() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subs)
}

func (h handlers) eventsRequest(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		log.Printf("error accepting websocket: %s", err)
		return
	}
	defer conn.CloseNow()

	ch := h.hub.subscribe()
	defer h.hub.unsubscribe(ch)

	// Displays never send anything; CloseRead notices when they go away.
	ctx := conn.CloseRead(req.Context())

	first := types.ScanEvent{
		Session: h.scanner.Session(),
		Status:  string(h.scanner.Status()),
		At:      h.hub.now(),
	}
	if err := write(ctx, conn, first); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-h.ctx.Done():
			conn.Close(websocket.StatusGoingAway, "kiosk shutting down")
			return
		case ev := <-ch:
			if err := write(ctx, conn, ev); err != nil {
				log.Printf("error writing event: %s", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, ev types.ScanEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
