package checkin

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/lessslie/olimpo-checkin/identity"
	"github.com/lessslie/olimpo-checkin/payload"
	"github.com/lessslie/olimpo-checkin/quota"
	"github.com/lessslie/olimpo-checkin/types"
)

const DefaultTimeout = 10 * time.Second

// Registrar is the backend's visit endpoint. It returns the membership as it
// stands after the visit, or a *types.RejectedError.
type Registrar interface {
	RegisterVisit(ctx context.Context, facilityID, subjectID string) (types.Membership, error)
}

// HoldStore remembers backend quota rejections between scans.
type HoldStore interface {
	GetHold(ctx context.Context, subject string) (types.Hold, bool, error)
	PutHold(ctx context.Context, h types.Hold) error
}

type Coordinator struct {
	registrar Registrar
	identity  identity.Provider
	holds     HoldStore
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Coordinator)

func WithHolds(h HoldStore) Option {
	return func(c *Coordinator) { c.holds = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(r Registrar, id identity.Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		registrar: r,
		identity:  id,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// HandleRaw validates decoded text and checks in whoever is signed in.
func (c *Coordinator) HandleRaw(ctx context.Context, raw string) types.Outcome {
	now := c.now()

	intent, err := payload.Validate(raw)
	if err != nil {
		log.Printf("rejecting scanned code: %s", err)
		return types.Outcome{
			Kind:   types.OutcomeInvalidPayload,
			Reason: "this code is not a valid attendance code",
			At:     now,
		}
	}

	var signedIn string
	if c.identity != nil {
		signedIn, err = c.identity.CurrentSubject()
		if err != nil {
			log.Printf("refusing code, kiosk session is not valid: %s", err)
			return types.Outcome{
				Kind:       types.OutcomeIdentityMismatch,
				FacilityID: intent.FacilityID,
				Reason:     "the kiosk session could not be verified, sign in again",
				At:         now,
			}
		}
	}
	return c.Attempt(ctx, intent, signedIn, now)
}

// Attempt registers exactly one visit for the intent. An empty signedIn
// means nobody is signed in on the kiosk.
func (c *Coordinator) Attempt(ctx context.Context, intent types.AttendanceIntent, signedIn string, now time.Time) types.Outcome {
	out := types.Outcome{FacilityID: intent.FacilityID, At: now}

	subject := signedIn
	if subject == "" {
		subject = intent.SubjectUserID
	}
	if subject == "" || intent.FacilityID == "" {
		out.Kind = types.OutcomeInvalidPayload
		out.Reason = "the code does not say who is checking in"
		return out
	}
	out.Subject = subject

	if signedIn != "" && intent.SubjectUserID != "" && signedIn != intent.SubjectUserID {
		log.Printf("code for %s scanned while %s is signed in", intent.SubjectUserID, signedIn)
		out.Kind = types.OutcomeIdentityMismatch
		out.Reason = "the scanned code belongs to a different member than the one signed in"
		return out
	}

	if h, ok := c.activeHold(ctx, subject, now); ok {
		log.Printf("%s is on hold until %s, not calling the backend", subject, h.Until.Format(time.DateTime))
		return quotaExceeded(out, h.Membership, now)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	m, err := c.registrar.RegisterVisit(callCtx, intent.FacilityID, subject)
	if errors.Is(err, types.ErrUnreadableAnswer) {
		log.Printf("visit registered for %s at %s without a membership: %s", subject, intent.FacilityID, err)
		out.Kind = types.OutcomeAccepted
		return out
	}
	if err != nil {
		return c.failed(ctx, out, err, now)
	}

	log.Printf("visit registered for %s at %s", subject, intent.FacilityID)
	notice := quota.Classify(m, now)
	out.Kind = types.OutcomeAccepted
	out.Membership = &m
	out.Notice = &notice
	return out
}

func (c *Coordinator) failed(ctx context.Context, out types.Outcome, err error, now time.Time) types.Outcome {
	var rej *types.RejectedError
	if errors.As(err, &rej) {
		if rej.StatusCode == http.StatusConflict && rej.Membership != nil {
			log.Printf("backend refused visit for %s: weekly quota used", out.Subject)
			c.hold(ctx, out, *rej.Membership, now)
			return quotaExceeded(out, *rej.Membership, now)
		}

		log.Printf("backend refused visit for %s: %s", out.Subject, rej)
		out.Kind = types.OutcomeNetworkError
		out.Retryable = rej.StatusCode >= 500 || rej.StatusCode == http.StatusConflict
		out.Reason = rej.Message
		if out.Reason == "" {
			out.Reason = http.StatusText(rej.StatusCode)
		}
		return out
	}

	log.Printf("error registering visit for %s: %s", out.Subject, err)
	out.Kind = types.OutcomeNetworkError
	out.Retryable = true
	if isTimeout(err) {
		out.Reason = "the check-in service took too long to answer"
	} else {
		out.Reason = "the check-in service could not be reached"
	}
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func quotaExceeded(out types.Outcome, m types.Membership, now time.Time) types.Outcome {
	notice := quota.Classify(m, now)
	out.Kind = types.OutcomeQuotaExceeded
	out.Membership = &m
	out.Notice = &notice
	out.Reason = quota.Message(types.Notice{Kind: types.NoticeCappedExhausted})
	return out
}

// activeHold reports a stored rejection that still applies: before its end
// and with a snapshot that would still be refused.
func (c *Coordinator) activeHold(ctx context.Context, subject string, now time.Time) (types.Hold, bool) {
	if c.holds == nil {
		return types.Hold{}, false
	}
	h, ok, err := c.holds.GetHold(ctx, subject)
	if err != nil {
		log.Printf("error reading hold for %s: %s", subject, err)
		return types.Hold{}, false
	}
	if !ok || !now.Before(h.Until) || quota.CanCheckInNow(h.Membership, now) {
		return types.Hold{}, false
	}
	return h, true
}

func (c *Coordinator) hold(ctx context.Context, out types.Outcome, m types.Membership, now time.Time) {
	if c.holds == nil {
		return
	}
	h := types.Hold{
		Subject:    out.Subject,
		FacilityID: out.FacilityID,
		Until:      quota.NextWeekStart(now),
		Membership: m,
	}
	if err := c.holds.PutHold(ctx, h); err != nil {
		log.Printf("error storing hold for %s: %s", out.Subject, err)
	}
}
