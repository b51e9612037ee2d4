package wsreader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/lessslie/olimpo-checkin/types"
)

func TestStartReader(t *testing.T) {
	events := []types.ScanEvent{
		{Session: "s1", Status: "active", From: "requesting"},
		{Session: "s1", Status: "detected", Outcome: &types.Outcome{Kind: types.OutcomeAccepted, Subject: "42"}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != eventsPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("error accepting: %s", err)
			return
		}
		for _, ev := range events {
			if err := wsjson.Write(r.Context(), conn, ev); err != nil {
				t.Errorf("error writing: %s", err)
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("error parsing httptest server url: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := New(ctx, u, nil)
	if err != nil {
		t.Fatalf("error connecting: %s", err)
	}

	var got []types.ScanEvent
	if err := r.StartReader(ctx, func(ev types.ScanEvent) { got = append(got, ev) }); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(got) != len(events) || got[1].Outcome == nil || got[1].Outcome.Subject != "42" {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestNewUnreachable(t *testing.T) {
	u, _ := url.Parse("http://127.0.0.1:1")
	if _, err := New(context.Background(), u, nil); err == nil {
		t.Error("expected an error dialing a closed port")
	}
}
