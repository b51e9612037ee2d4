package wsreader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/lessslie/olimpo-checkin/types"
)

const (
	eventsPath  = "/scan/events"
	dialTimeout = 5 * time.Second
)

// WsReader follows the event stream of a running kiosk.
type WsReader struct {
	conn *websocket.Conn
}

// New connects to the kiosk at base, e.g. http://kiosk.local:8080.
func New(ctx context.Context, base *url.URL, hc *http.Client) (*WsReader, error) {
	u := *base.JoinPath(eventsPath)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	log.Printf("connecting to %s", u.String())

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPClient: hc})
	if err != nil {
		return nil, fmt.Errorf("error dialing websocket: %w", err)
	}
	return &WsReader{conn: conn}, nil
}

// StartReader hands every event to handle. It only returns when ctx is done
// or the kiosk closes the stream.
func (w *WsReader) StartReader(ctx context.Context, handle func(types.ScanEvent)) error {
	defer w.conn.CloseNow()

	for {
		var ev types.ScanEvent
		if err := wsjson.Read(ctx, w.conn, &ev); err != nil {
			if errors.Is(err, context.Canceled) {
				w.conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			if s := websocket.CloseStatus(err); s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
				return nil
			}
			return fmt.Errorf("error reading from websocket: %w", err)
		}
		handle(ev)
	}
}
