package types

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const AttendanceKind = "gym_attendance"

type Sender interface {
	Post(ctx context.Context, o Outcome) error
}

// AttendanceIntent is the validated meaning of a scanned attendance code.
type AttendanceIntent struct {
	Kind          string    `json:"type"`
	FacilityID    string    `json:"gym_id"`
	IssuedAt      time.Time `json:"timestamp"`
	SubjectUserID string    `json:"user_id,omitempty"`
}

type PlanKind string

const (
	PlanMonthly      PlanKind = "monthly"
	PlanQuarterly    PlanKind = "quarterly"
	PlanAnnual       PlanKind = "annual"
	PlanCustom       PlanKind = "custom"
	PlanMultisport   PlanKind = "multisport"
	PlanKickboxing2x PlanKind = "kickboxing_2"
	PlanKickboxing3x PlanKind = "kickboxing_3"
)

type MembershipStatus string

const (
	StatusActive  MembershipStatus = "active"
	StatusExpired MembershipStatus = "expired"
	StatusPending MembershipStatus = "pending"
)

// Membership is a read-only snapshot as returned by the backend. A nil
// VisitsAllowedPerWeek means the plan has no weekly cap.
type Membership struct {
	ID                   string           `json:"id"`
	PlanKind             PlanKind         `json:"plan_kind"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              time.Time        `json:"end_date"`
	Status               MembershipStatus `json:"status"`
	VisitsAllowedPerWeek *int             `json:"visits_allowed_per_week,omitempty"`
	VisitsUsedThisWeek   *int             `json:"visits_used_this_week,omitempty"`
}

type NoticeKind string

const (
	NoticeExpiringTodayOrTomorrow NoticeKind = "expiring_today_or_tomorrow"
	NoticeExpiringSoon            NoticeKind = "expiring_soon"
	NoticeCappedRemaining         NoticeKind = "capped_remaining"
	NoticeCappedExhausted         NoticeKind = "capped_exhausted"
	NoticeNormal                  NoticeKind = "normal"
)

type Notice struct {
	Kind      NoticeKind `json:"kind"`
	DaysLeft  int        `json:"days_left"`
	Remaining int        `json:"remaining,omitempty"`
	Message   string     `json:"message"`
}

type OutcomeKind string

const (
	OutcomeAccepted         OutcomeKind = "accepted"
	OutcomeQuotaExceeded    OutcomeKind = "quota_exceeded"
	OutcomeInvalidPayload   OutcomeKind = "invalid_payload"
	OutcomeNetworkError     OutcomeKind = "network_error"
	OutcomeIdentityMismatch OutcomeKind = "identity_mismatch"
)

// Outcome is the result of one check-in attempt. It is handed to the
// presentation layer and senders, then dropped.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Subject    string      `json:"subject,omitempty"`
	FacilityID string      `json:"facility_id,omitempty"`
	Membership *Membership `json:"membership,omitempty"`
	Notice     *Notice     `json:"notice,omitempty"`
	Retryable  bool        `json:"retryable,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	At         time.Time   `json:"at"`
}

// Hold remembers a backend quota rejection for a subject until Until.
type Hold struct {
	Subject    string     `json:"subject"`
	FacilityID string     `json:"facility_id"`
	Until      time.Time  `json:"until"`
	Membership Membership `json:"membership"`
}

// ErrUnreadableAnswer is wrapped by the visit registrar when the backend
// accepted the visit but its answer could not be read.
var ErrUnreadableAnswer = errors.New("visit registered but the answer was unreadable")

// RejectedError is returned by the visit registrar for non-2xx responses.
// Membership is set when the backend included a snapshot in the body.
type RejectedError struct {
	StatusCode int
	Message    string
	Membership *Membership
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("check-in rejected: status %d", e.StatusCode)
	}
	return fmt.Sprintf("check-in rejected: status %d: %s", e.StatusCode, e.Message)
}

// ScanEvent is what the kiosk streams to its display: a status transition
// of a scan session, or the outcome the session produced.
type ScanEvent struct {
	Session string    `json:"session"`
	From    string    `json:"from,omitempty"`
	Status  string    `json:"status"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	At      time.Time `json:"at"`
}
