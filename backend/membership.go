package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/lessslie/olimpo-checkin/types"
)

const dateLayout = "2006-01-02"

type membershipJSON struct {
	ID                   string `json:"id"`
	PlanKind             string `json:"plan_kind"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	Status               string `json:"status"`
	VisitsAllowedPerWeek *int   `json:"visits_allowed_per_week"`
	VisitsUsedThisWeek   *int   `json:"visits_used_this_week"`
}

func (m membershipJSON) toMembership(loc *time.Location) (types.Membership, error) {
	start, err := parseDate(m.StartDate, loc)
	if err != nil {
		return types.Membership{}, fmt.Errorf("invalid start_date: %w", err)
	}
	if m.EndDate == "" {
		return types.Membership{}, errors.New("missing end_date")
	}
	end, err := parseDate(m.EndDate, loc)
	if err != nil {
		return types.Membership{}, fmt.Errorf("invalid end_date: %w", err)
	}
	if end.Before(start) {
		return types.Membership{}, fmt.Errorf("end_date %s is before start_date %s", m.EndDate, m.StartDate)
	}

	return types.Membership{
		ID:                   m.ID,
		PlanKind:             types.PlanKind(m.PlanKind),
		StartDate:            start,
		EndDate:              end,
		Status:               types.MembershipStatus(m.Status),
		VisitsAllowedPerWeek: m.VisitsAllowedPerWeek,
		VisitsUsedThisWeek:   m.VisitsUsedThisWeek,
	}, nil
}

// parseDate accepts full timestamps or bare dates. Bare dates are midnight
// in the kiosk's time zone.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, s, loc)
}
