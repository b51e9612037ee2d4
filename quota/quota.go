package quota

import (
	"fmt"
	"math"
	"time"

	"github.com/lessslie/olimpo-checkin/types"
)

// Unlimited is what RemainingWeeklyVisits returns for uncapped plans.
const Unlimited = math.MaxInt

const (
	expiringNowDays  = 1
	expiringSoonDays = 7
)

type date struct {
	year  int
	month time.Month
	day   int
}

func newDate(year int, month time.Month, day int) date {
	return date{year: year, month: month, day: day}
}

func (d date) midnight() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// DaysUntilExpiry counts calendar days from now to the membership end date,
// both taken in now's location. It is negative once the end date has passed.
func DaysUntilExpiry(m types.Membership, now time.Time) int {
	today := newDate(now.Date())
	end := newDate(m.EndDate.In(now.Location()).Date())
	return int(end.midnight().Sub(today.midnight()).Hours() / 24)
}

func IsCapped(m types.Membership) bool {
	return m.VisitsAllowedPerWeek != nil
}

func RemainingWeeklyVisits(m types.Membership) int {
	if !IsCapped(m) {
		return Unlimited
	}

	used := 0
	if m.VisitsUsedThisWeek != nil {
		used = *m.VisitsUsedThisWeek
	}
	return *m.VisitsAllowedPerWeek - used
}

// CanCheckInNow reports whether a visit would be allowed. now is accepted so
// callers evaluate against the same instant they classify with; status is
// trusted as given by the backend.
func CanCheckInNow(m types.Membership, now time.Time) bool {
	if m.Status != types.StatusActive {
		return false
	}
	return !IsCapped(m) || RemainingWeeklyVisits(m) > 0
}

// Classify picks the notice shown after a check-in. Expiry notices win over
// capacity notices.
func Classify(m types.Membership, now time.Time) types.Notice {
	n := types.Notice{DaysLeft: DaysUntilExpiry(m, now)}

	switch {
	case n.DaysLeft <= expiringNowDays:
		n.Kind = types.NoticeExpiringTodayOrTomorrow
	case n.DaysLeft <= expiringSoonDays:
		n.Kind = types.NoticeExpiringSoon
	case IsCapped(m) && RemainingWeeklyVisits(m) <= 0:
		n.Kind = types.NoticeCappedExhausted
	case IsCapped(m):
		n.Kind = types.NoticeCappedRemaining
		n.Remaining = RemainingWeeklyVisits(m)
	default:
		n.Kind = types.NoticeNormal
	}

	n.Message = Message(n)
	return n
}

func Message(n types.Notice) string {
	switch n.Kind {
	case types.NoticeExpiringTodayOrTomorrow:
		if n.DaysLeft < 0 {
			return "Your membership has expired. Please renew it at the front desk."
		}
		if n.DaysLeft == 0 {
			return "Your membership expires today. Renew it to keep training."
		}
		return "Your membership expires tomorrow. Renew it to keep training."
	case types.NoticeExpiringSoon:
		return fmt.Sprintf("Your membership expires in %d days.", n.DaysLeft)
	case types.NoticeCappedRemaining:
		if n.Remaining == 1 {
			return "Check-in registered. You have 1 visit left this week."
		}
		return fmt.Sprintf("Check-in registered. You have %d visits left this week.", n.Remaining)
	case types.NoticeCappedExhausted:
		return "You have used all your visits for this week."
	default:
		return "Check-in registered. Enjoy your workout!"
	}
}

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

func NextWeekStart(t time.Time) time.Time {
	ws := WeekStart(t)
	y, m, d := ws.Date()
	return time.Date(y, m, d+7, 0, 0, 0, 0, t.Location())
}
