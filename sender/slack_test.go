package sender

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/lessslie/olimpo-checkin/types"
)

const (
	member = "42"
)

func TestOutcomeToString(t *testing.T) {
	at := time.Date(2026, 10, 19, 18, 5, 0, 0, time.UTC)

	for _, tt := range []struct {
		name    string
		outcome types.Outcome
		want    string
		wantOk  bool
	}{
		{
			name:    "Accepted",
			outcome: types.Outcome{Kind: types.OutcomeAccepted, Subject: member, FacilityID: "1", At: at},
			want:    "Member 42 checked in at gym 1 (18:05)",
			wantOk:  true,
		},
		{
			name: "Accepted with notice",
			outcome: types.Outcome{
				Kind:    types.OutcomeAccepted,
				Subject: member,
				At:      at,
				Notice:  &types.Notice{Kind: types.NoticeExpiringSoon, DaysLeft: 5, Message: "Your membership expires in 5 days."},
			},
			want:   "Member 42 checked in (18:05)\n:warning: Your membership expires in 5 days.",
			wantOk: true,
		},
		{
			name: "Quota exceeded",
			outcome: types.Outcome{
				Kind:       types.OutcomeQuotaExceeded,
				Subject:    member,
				FacilityID: "1",
				Notice:     &types.Notice{Kind: types.NoticeCappedExhausted, Message: "You have used all your visits for this week."},
			},
			want:   "Member 42 was turned away at gym 1\n:no_entry: You have used all your visits for this week.",
			wantOk: true,
		},
		{
			name:    "Network error is not announced",
			outcome: types.Outcome{Kind: types.OutcomeNetworkError, Subject: member},
			wantOk:  false,
		},
		{
			name:    "Mismatch is not announced",
			outcome: types.Outcome{Kind: types.OutcomeIdentityMismatch, Subject: member},
			wantOk:  false,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := outcomeToString(tt.outcome)
			if got != tt.want || ok != tt.wantOk {
				log.Printf("want: %s", tt.want)
				log.Printf("got : %s", got)
				t.Error("strings differ")
			}
		})
	}
}

func TestSilentPost(t *testing.T) {
	s := NewSlack("#front-desk", "xoxb-unused", true)
	err := s.Post(context.Background(), types.Outcome{Kind: types.OutcomeAccepted, Subject: member})
	if err != nil {
		t.Errorf("unexpected error in silent mode: %s", err)
	}
}
