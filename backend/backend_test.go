package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/lessslie/olimpo-checkin/types"
)

const (
	tz = "America/Argentina/Buenos_Aires"
)

type staticToken string

func (s staticToken) Token() (string, error) {
	return string(s), nil
}

func TestRegisterVisit(t *testing.T) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("error loading timezone: %s", err)
	}

	for _, tt := range []struct {
		name        string
		status      int
		body        string
		want        types.Membership
		wantStatus  int
		wantSnap    bool
		wantMessage string
		wantBadBody bool
	}{
		{
			name:   "Accepted",
			status: http.StatusOK,
			body: `{"membership":{"id":"m1","plan_kind":"kickboxing_2","start_date":"2026-10-01",` +
				`"end_date":"2026-10-31","status":"active","visits_allowed_per_week":2,"visits_used_this_week":1}}`,
			want: types.Membership{
				ID:        "m1",
				PlanKind:  types.PlanKickboxing2x,
				StartDate: time.Date(2026, 10, 1, 0, 0, 0, 0, loc),
				EndDate:   time.Date(2026, 10, 31, 0, 0, 0, 0, loc),
				Status:    types.StatusActive,
			},
		},
		{
			name:   "Accepted with timestamps",
			status: http.StatusCreated,
			body: `{"membership":{"id":"m2","plan_kind":"annual","start_date":"2026-01-01T03:00:00Z",` +
				`"end_date":"2027-01-01T03:00:00Z","status":"active"}}`,
			want: types.Membership{
				ID:        "m2",
				PlanKind:  types.PlanAnnual,
				StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, loc),
				EndDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, loc),
				Status:    types.StatusActive,
			},
		},
		{
			name:   "Quota exceeded",
			status: http.StatusConflict,
			body: `{"message":"weekly limit reached","membership":{"id":"m1","plan_kind":"kickboxing_2",` +
				`"start_date":"2026-10-01","end_date":"2026-10-31","status":"active",` +
				`"visits_allowed_per_week":2,"visits_used_this_week":2}}`,
			wantStatus:  http.StatusConflict,
			wantSnap:    true,
			wantMessage: "weekly limit reached",
		},
		{
			name:        "Accepted without membership",
			status:      http.StatusCreated,
			body:        `{"message":"visit registered"}`,
			wantBadBody: true,
		},
		{
			name:        "Accepted with garbage body",
			status:      http.StatusOK,
			body:        "ok",
			wantBadBody: true,
		},
		{
			name:   "Accepted without end date",
			status: http.StatusOK,
			body: `{"membership":{"id":"m1","plan_kind":"monthly","start_date":"2026-10-01",` +
				`"status":"active"}}`,
			wantBadBody: true,
		},
		{
			name:   "Quota exceeded without end date",
			status: http.StatusConflict,
			body: `{"message":"weekly limit reached","membership":{"id":"m1","plan_kind":"kickboxing_2",` +
				`"start_date":"2026-10-01","status":"active","visits_allowed_per_week":2,"visits_used_this_week":2}}`,
			wantStatus:  http.StatusConflict,
			wantSnap:    false,
			wantMessage: "weekly limit reached",
		},
		{
			name:        "Server error with text body",
			status:      http.StatusBadGateway,
			body:        "upstream down",
			wantStatus:  http.StatusBadGateway,
			wantMessage: "upstream down",
		},
		{
			name:        "Not found",
			status:      http.StatusNotFound,
			body:        `{"message":"user has no membership"}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: "user has no membership",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/attendance/check-in" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("unexpected authorization: %q", got)
				}
				if r.Header.Get("Idempotency-Key") == "" {
					t.Error("missing idempotency key")
				}

				var req visitReq
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("error decoding request: %s", err)
				}
				if req.GymID != "1" || req.UserID != "42" {
					t.Errorf("unexpected request body: %+v", req)
				}

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			u, err := url.Parse(server.URL + "/api")
			if err != nil {
				t.Fatalf("error parsing httptest server url: %s", err)
			}

			c := New(u, staticToken("tok"), loc, time.Second)
			got, err := c.RegisterVisit(context.Background(), "1", "42")

			if tt.wantStatus != 0 {
				var rej *types.RejectedError
				if !errors.As(err, &rej) {
					t.Fatalf("unexpected error: %v", err)
				}
				if rej.StatusCode != tt.wantStatus || rej.Message != tt.wantMessage || (rej.Membership != nil) != tt.wantSnap {
					log.Printf("want: %d %q snapshot=%t", tt.wantStatus, tt.wantMessage, tt.wantSnap)
					log.Printf("got:  %+v", rej)
					t.Error("rejections differ")
				}
				return
			}
			if tt.wantBadBody {
				if !errors.Is(err, types.ErrUnreadableAnswer) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if got.ID != tt.want.ID || got.PlanKind != tt.want.PlanKind || got.Status != tt.want.Status ||
				!got.StartDate.Equal(tt.want.StartDate) || !got.EndDate.Equal(tt.want.EndDate) {
				log.Printf("want: %+v", tt.want)
				log.Printf("got:  %+v", got)
				t.Error("memberships differ")
			}
		})
	}
}

func TestRegisterVisitTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	u, _ := url.Parse(server.URL)
	c := New(u, nil, time.UTC, 50*time.Millisecond)

	_, err := c.RegisterVisit(context.Background(), "1", "42")
	if err == nil {
		t.Fatal("expected a timeout")
	}
	var rej *types.RejectedError
	if errors.As(err, &rej) {
		t.Errorf("timeout reported as rejection: %s", err)
	}
}
