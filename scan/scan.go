package scan

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lessslie/olimpo-checkin/frame"
	"github.com/lessslie/olimpo-checkin/types"
)

const DefaultInterval = 33 * time.Millisecond

type Status string

const (
	StatusIdle       Status = "idle"
	StatusRequesting Status = "requesting"
	StatusActive     Status = "active"
	StatusDetected   Status = "detected"
	StatusStopped    Status = "stopped"
	StatusFailed     Status = "failed"
)

var ErrBusy = errors.New("a scan session is already running")

// Decoder looks for a QR code in one frame.
type Decoder interface {
	Decode(img image.Image) (string, bool)
}

// Dispatcher turns the decoded text of a code into a check-in outcome.
type Dispatcher interface {
	HandleRaw(ctx context.Context, raw string) types.Outcome
}

// Observer is told about every status transition and about the outcome of
// a session that detected a code. Calls are made from the session goroutine
// and must not block for long.
type Observer interface {
	StatusChanged(sessionID string, from, to Status)
	OutcomeReady(sessionID string, o types.Outcome)
}

type observers []Observer

// Observers fans every notification out to all of obs.
func Observers(obs ...Observer) Observer {
	return observers(obs)
}

func (o observers) StatusChanged(id string, from, to Status) {
	for _, obs := range o {
		obs.StatusChanged(id, from, to)
	}
}

func (o observers) OutcomeReady(id string, out types.Outcome) {
	for _, obs := range o {
		obs.OutcomeReady(id, out)
	}
}

type nopObserver struct{}

func (nopObserver) StatusChanged(string, Status, Status) {}
func (nopObserver) OutcomeReady(string, types.Outcome)   {}

type session struct {
	id       string
	cancel   context.CancelFunc
	released chan struct{}
	stopped  bool
	inFlight bool
}

// Loop owns the camera. At most one session runs at a time; each session
// opens the camera once, polls frames until a code is found or it is
// stopped, and hands the first code to the dispatcher.
type Loop struct {
	source     frame.Source
	decoder    Decoder
	dispatcher Dispatcher
	interval   time.Duration
	observer   Observer

	mu      sync.Mutex
	status  Status
	current *session
}

type Option func(*Loop)

func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(l *Loop) {
		if o != nil {
			l.observer = o
		}
	}
}

func New(source frame.Source, decoder Decoder, dispatcher Dispatcher, opts ...Option) *Loop {
	l := &Loop{
		source:     source,
		decoder:    decoder,
		dispatcher: dispatcher,
		interval:   DefaultInterval,
		observer:   nopObserver{},
		status:     StatusIdle,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Session returns the id of the latest session, or "" before the first
// Start.
func (l *Loop) Session() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return ""
	}
	return l.current.id
}

// Start begins a new session. It fails with ErrBusy while another session
// is requesting the camera, scanning, or waiting on the check-in of the
// code it detected.
func (l *Loop) Start(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.busy() {
		l.mu.Unlock()
		return "", ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		id:       uuid.NewString(),
		cancel:   cancel,
		released: make(chan struct{}),
	}
	l.current = s
	from := l.status
	l.status = StatusRequesting
	l.mu.Unlock()

	log.Printf("scan session %s starting", s.id)
	l.observer.StatusChanged(s.id, from, StatusRequesting)

	go l.run(ctx, s)
	return s.id, nil
}

// Stop ends the running session, if any, and returns once the camera has
// been released. A check-in already in flight is not cancelled but its
// outcome is dropped. Stop is safe to call at any time.
func (l *Loop) Stop() {
	l.mu.Lock()
	s := l.current
	if s == nil || s.stopped {
		l.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	l.mu.Unlock()

	<-s.released

	l.mu.Lock()
	from := l.status
	changed := l.current == s && from != StatusStopped
	if changed {
		l.status = StatusStopped
	}
	l.mu.Unlock()

	if changed {
		log.Printf("scan session %s stopped", s.id)
		l.observer.StatusChanged(s.id, from, StatusStopped)
	}
}

// busy must be called with l.mu held.
func (l *Loop) busy() bool {
	switch l.status {
	case StatusRequesting, StatusActive:
		return true
	case StatusDetected:
		return l.current != nil && l.current.inFlight && !l.current.stopped
	}
	return false
}

// transition moves s to the given status unless it was stopped or replaced.
// Moving to detected marks the check-in as in flight.
func (l *Loop) transition(s *session, to Status) bool {
	l.mu.Lock()
	if s.stopped || l.current != s {
		l.mu.Unlock()
		return false
	}
	from := l.status
	l.status = to
	if to == StatusDetected {
		s.inFlight = true
	}
	l.mu.Unlock()

	l.observer.StatusChanged(s.id, from, to)
	return true
}

// settle ends the in-flight check-in of s and reports whether its outcome
// should still be delivered.
func (l *Loop) settle(s *session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.inFlight = false
	return !s.stopped && l.current == s
}

// live reports whether s is still the session the loop is running.
func (l *Loop) live(s *session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !s.stopped && l.current == s
}

func (l *Loop) run(ctx context.Context, s *session) {
	var once sync.Once
	release := func() { once.Do(func() { close(s.released) }) }
	defer release()

	stream, err := l.source.Open(ctx)
	if err != nil {
		if l.live(s) {
			log.Printf("scan session %s couldn't open camera: %s", s.id, err)
		}
		l.transition(s, StatusFailed)
		return
	}

	if !l.transition(s, StatusActive) {
		l.closeStream(stream, release)
		return
	}

	raw, err := l.poll(ctx, s, stream)
	l.closeStream(stream, release)
	switch {
	case ctx.Err() != nil:
		// Cancelled from outside Stop, e.g. on shutdown.
		l.transition(s, StatusStopped)
		return
	case err != nil:
		log.Printf("scan session %s lost the camera: %s", s.id, err)
		l.transition(s, StatusFailed)
		return
	}

	if !l.transition(s, StatusDetected) {
		return
	}
	log.Printf("scan session %s detected a code", s.id)

	out := l.dispatcher.HandleRaw(context.WithoutCancel(ctx), raw)
	if !l.settle(s) {
		log.Printf("scan session %s was stopped, dropping %s outcome", s.id, out.Kind)
		return
	}
	l.observer.OutcomeReady(s.id, out)
}

func (l *Loop) closeStream(stream frame.Stream, release func()) {
	if err := stream.Close(); err != nil {
		log.Printf("error closing camera: %s", err)
	}
	release()
}

// poll reads frames until one carries a code. Every frame without one is
// reported as an active to active transition. A non-nil error means the
// camera is gone.
func (l *Loop) poll(ctx context.Context, s *session, stream frame.Stream) (string, error) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		img, err := stream.Frame(ctx)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err != nil {
			if errors.Is(err, frame.ErrNoDevice) || errors.Is(err, frame.ErrClosed) ||
				errors.Is(err, frame.ErrPermissionDenied) {
				return "", err
			}
			log.Printf("error reading frame: %s", err)
		} else if raw, ok := l.decoder.Decode(img); ok {
			return raw, nil
		}

		if !l.transition(s, StatusActive) {
			return "", context.Canceled
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
