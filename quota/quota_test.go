package quota

import (
	"log"
	"testing"
	"time"

	"github.com/lessslie/olimpo-checkin/types"
)

const (
	tz = "America/Argentina/Buenos_Aires"
)

func intPtr(i int) *int {
	return &i
}

func loadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("error loading timezone: %s", err)
	}
	return loc
}

func TestDaysUntilExpiry(t *testing.T) {
	loc := loadLoc(t)
	now := time.Date(2026, 10, 19, 23, 30, 0, 0, loc)

	for _, tt := range []struct {
		name string
		end  time.Time
		want int
	}{
		{name: "Same day", end: time.Date(2026, 10, 19, 0, 0, 0, 0, loc), want: 0},
		{name: "Tomorrow just after midnight", end: time.Date(2026, 10, 20, 0, 5, 0, 0, loc), want: 1},
		{name: "Tomorrow late", end: time.Date(2026, 10, 20, 23, 59, 0, 0, loc), want: 1},
		{name: "A week", end: time.Date(2026, 10, 26, 12, 0, 0, 0, loc), want: 7},
		{name: "Yesterday", end: time.Date(2026, 10, 18, 12, 0, 0, 0, loc), want: -1},
		{name: "Across month", end: time.Date(2026, 11, 2, 0, 0, 0, 0, loc), want: 14},
		{name: "End date in UTC", end: time.Date(2026, 10, 21, 1, 0, 0, 0, time.UTC), want: 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysUntilExpiry(types.Membership{EndDate: tt.end}, now)
			if got != tt.want {
				t.Errorf("unexpected days: %d. Wanted %d", got, tt.want)
			}
		})
	}
}

func TestRemainingIsMonotonic(t *testing.T) {
	for allowed := 0; allowed <= 5; allowed++ {
		prev := Unlimited
		for used := 0; used <= allowed+2; used++ {
			m := types.Membership{
				Status:               types.StatusActive,
				VisitsAllowedPerWeek: intPtr(allowed),
				VisitsUsedThisWeek:   intPtr(used),
			}
			got := RemainingWeeklyVisits(m)
			if got > prev {
				t.Fatalf("remaining went up: allowed=%d used=%d got=%d prev=%d", allowed, used, got, prev)
			}
			if got <= 0 && CanCheckInNow(m, time.Now()) {
				t.Fatalf("check-in allowed with %d remaining", got)
			}
			prev = got
		}
	}
}

func TestCanCheckInNow(t *testing.T) {
	now := time.Now()

	for _, tt := range []struct {
		name string
		m    types.Membership
		want bool
	}{
		{
			name: "Uncapped active",
			m:    types.Membership{Status: types.StatusActive},
			want: true,
		},
		{
			name: "Uncapped expired",
			m:    types.Membership{Status: types.StatusExpired},
			want: false,
		},
		{
			name: "Pending",
			m:    types.Membership{Status: types.StatusPending},
			want: false,
		},
		{
			name: "Capped with visits left",
			m:    types.Membership{Status: types.StatusActive, VisitsAllowedPerWeek: intPtr(3), VisitsUsedThisWeek: intPtr(1)},
			want: true,
		},
		{
			name: "Capped without usage reported",
			m:    types.Membership{Status: types.StatusActive, VisitsAllowedPerWeek: intPtr(2)},
			want: true,
		},
		{
			name: "Capped exhausted",
			m:    types.Membership{Status: types.StatusActive, VisitsAllowedPerWeek: intPtr(2), VisitsUsedThisWeek: intPtr(2)},
			want: false,
		},
		{
			name: "Zero allowance",
			m:    types.Membership{Status: types.StatusActive, VisitsAllowedPerWeek: intPtr(0)},
			want: false,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanCheckInNow(tt.m, now); got != tt.want {
				t.Errorf("unexpected result: %t. Wanted %t", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	loc := loadLoc(t)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, loc)
	inDays := func(d int) time.Time {
		return time.Date(2026, 10, 19+d, 12, 0, 0, 0, loc)
	}

	for _, tt := range []struct {
		name string
		m    types.Membership
		want types.Notice
	}{
		{
			name: "Capped exhausted",
			m: types.Membership{
				Status:               types.StatusActive,
				EndDate:              inDays(30),
				VisitsAllowedPerWeek: intPtr(2),
				VisitsUsedThisWeek:   intPtr(2),
			},
			want: types.Notice{Kind: types.NoticeCappedExhausted, DaysLeft: 30},
		},
		{
			name: "Uncapped expiring tomorrow",
			m:    types.Membership{Status: types.StatusActive, EndDate: inDays(1)},
			want: types.Notice{Kind: types.NoticeExpiringTodayOrTomorrow, DaysLeft: 1},
		},
		{
			name: "Expiry wins over exhaustion",
			m: types.Membership{
				Status:               types.StatusActive,
				EndDate:              inDays(0),
				VisitsAllowedPerWeek: intPtr(2),
				VisitsUsedThisWeek:   intPtr(2),
			},
			want: types.Notice{Kind: types.NoticeExpiringTodayOrTomorrow, DaysLeft: 0},
		},
		{
			name: "Expiring soon wins over remaining",
			m: types.Membership{
				Status:               types.StatusActive,
				EndDate:              inDays(5),
				VisitsAllowedPerWeek: intPtr(3),
				VisitsUsedThisWeek:   intPtr(1),
			},
			want: types.Notice{Kind: types.NoticeExpiringSoon, DaysLeft: 5},
		},
		{
			name: "Boundary of expiring soon",
			m:    types.Membership{Status: types.StatusActive, EndDate: inDays(7)},
			want: types.Notice{Kind: types.NoticeExpiringSoon, DaysLeft: 7},
		},
		{
			name: "Capped remaining",
			m: types.Membership{
				Status:               types.StatusActive,
				EndDate:              inDays(8),
				VisitsAllowedPerWeek: intPtr(3),
				VisitsUsedThisWeek:   intPtr(1),
			},
			want: types.Notice{Kind: types.NoticeCappedRemaining, DaysLeft: 8, Remaining: 2},
		},
		{
			name: "Zero allowance is exhausted",
			m:    types.Membership{Status: types.StatusActive, EndDate: inDays(20), VisitsAllowedPerWeek: intPtr(0)},
			want: types.Notice{Kind: types.NoticeCappedExhausted, DaysLeft: 20},
		},
		{
			name: "Already expired",
			m:    types.Membership{Status: types.StatusExpired, EndDate: inDays(-3)},
			want: types.Notice{Kind: types.NoticeExpiringTodayOrTomorrow, DaysLeft: -3},
		},
		{
			name: "Normal",
			m:    types.Membership{Status: types.StatusActive, PlanKind: types.PlanAnnual, EndDate: inDays(200)},
			want: types.Notice{Kind: types.NoticeNormal, DaysLeft: 200},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.m, now)
			if got.Kind != tt.want.Kind || got.DaysLeft != tt.want.DaysLeft || got.Remaining != tt.want.Remaining {
				log.Printf("want: %+v", tt.want)
				log.Printf("got:  %+v", got)
				t.Error("notices differ")
			}
			if got.Message == "" {
				t.Error("notice has no message")
			}
		})
	}
}

func TestExpiryAlwaysBeatsExhaustion(t *testing.T) {
	loc := loadLoc(t)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, loc)

	for days := -5; days <= 1; days++ {
		for allowed := 0; allowed <= 3; allowed++ {
			m := types.Membership{
				Status:               types.StatusActive,
				EndDate:              now.AddDate(0, 0, days),
				VisitsAllowedPerWeek: intPtr(allowed),
				VisitsUsedThisWeek:   intPtr(allowed),
			}
			if got := Classify(m, now); got.Kind != types.NoticeExpiringTodayOrTomorrow {
				t.Fatalf("days=%d allowed=%d: got %s", days, allowed, got.Kind)
			}
		}
	}
}

func TestWeekStart(t *testing.T) {
	loc := loadLoc(t)

	for _, tt := range []struct {
		name string
		t    time.Time
		want time.Time
	}{
		{
			name: "Monday",
			t:    time.Date(2026, 10, 19, 10, 0, 0, 0, loc),
			want: time.Date(2026, 10, 19, 0, 0, 0, 0, loc),
		},
		{
			name: "Sunday night",
			t:    time.Date(2026, 10, 25, 23, 59, 0, 0, loc),
			want: time.Date(2026, 10, 19, 0, 0, 0, 0, loc),
		},
		{
			name: "Across month",
			t:    time.Date(2026, 11, 1, 8, 0, 0, 0, loc),
			want: time.Date(2026, 10, 26, 0, 0, 0, 0, loc),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.t); !got.Equal(tt.want) {
				log.Printf("want: %s", tt.want)
				log.Printf("got:  %s", got)
				t.Error("week starts differ")
			}
			if got := NextWeekStart(tt.t); !got.Equal(tt.want.AddDate(0, 0, 7)) {
				t.Errorf("unexpected next week start: %s", got)
			}
		})
	}
}
