// Package poller implements the client-side consent-status coordinator: one
// timer-driven loop per patient that repeatedly asks the consent authority
// for a valid consent until it is granted, the attempt ceiling is reached,
// or the caller cancels.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPermissionDenied is returned by an Authority when the caller is not
// (yet) authorized for the patient. The poller treats it as "no data yet",
// not as a hard failure.
var ErrPermissionDenied = errors.New("permission denied for patient")

// Compiled-in polling parameters. Deliberately not part of the external
// configuration surface.
const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 40
)

// Authority is the external consent-status source the poller queries.
type Authority interface {
	HasValidConsent(ctx context.Context, patientID string) (bool, error)
}

// State is the lifecycle state of one polling session
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateGranted   State = "granted"
	StateTimedOut  State = "timed_out"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions can occur from this state.
func (s State) Terminal() bool {
	return s == StateGranted || s == StateTimedOut || s == StateCancelled
}

// Result is delivered to the caller exactly once per session, when the
// session reaches a terminal state.
type Result struct {
	PatientID string
	State     State
	Attempts  int
}

// Option configures a Poller
type Option func(*Poller)

// WithInterval overrides the tick interval (tests use millisecond intervals)
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) { p.interval = interval }
}

// WithMaxAttempts overrides the attempt ceiling
func WithMaxAttempts(maxAttempts int) Option {
	return func(p *Poller) { p.maxAttempts = maxAttempts }
}

// Poller coordinates at most one polling session per patient
type Poller struct {
	authority   Authority
	logger      *logrus.Logger
	interval    time.Duration
	maxAttempts int

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	state      State
	attempts   int
	cancelCh   chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

// New creates a poller with the compiled-in interval and ceiling unless
// overridden by options.
func New(authority Authority, logger *logrus.Logger, opts ...Option) *Poller {
	p := &Poller{
		authority:   authority,
		logger:      logger,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins a polling session for the patient. Returns false without any
// side effect when a session is already polling for that patient, making
// concurrent starts idempotent. onResult (optional) fires exactly once when
// the session reaches a terminal state.
func (p *Poller) Start(ctx context.Context, patientID string, onResult func(Result)) bool {
	p.mu.Lock()
	// Entries are removed on finish, so presence means an active session.
	if _, ok := p.sessions[patientID]; ok {
		p.mu.Unlock()
		return false
	}
	s := &session{
		state:    StatePolling,
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.sessions[patientID] = s
	p.mu.Unlock()

	go p.run(ctx, patientID, s, onResult)
	return true
}

// Cancel stops the session for the patient, synchronously: when Cancel
// returns, no further tick can fire and the per-patient guard is released.
// Cancelling an already-terminal or unknown session is a no-op.
func (p *Poller) Cancel(patientID string) {
	p.mu.Lock()
	s, ok := p.sessions[patientID]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	s.cancelOnce.Do(func() { close(s.cancelCh) })
	<-s.done
}

// State returns the state of the patient's active session, StateIdle when
// none is running. Terminal states are delivered through the Result callback;
// finished sessions are not retained.
func (p *Poller) State(patientID string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[patientID]; ok {
		return s.state
	}
	return StateIdle
}

// Attempts returns the tick count of the patient's active session so far.
func (p *Poller) Attempts(patientID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[patientID]; ok {
		return s.attempts
	}
	return 0
}

func (p *Poller) run(ctx context.Context, patientID string, s *session, onResult func(Result)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			p.finish(patientID, s, StateCancelled, onResult)
			return

		case <-s.cancelCh:
			p.finish(patientID, s, StateCancelled, onResult)
			return

		case <-ticker.C:
			// A cancel racing with a due tick wins: no observation is made
			// once cancellation has been requested.
			select {
			case <-s.cancelCh:
				p.finish(patientID, s, StateCancelled, onResult)
				return
			default:
			}

			p.mu.Lock()
			s.attempts++
			attempts := s.attempts
			p.mu.Unlock()

			granted, err := p.authority.HasValidConsent(ctx, patientID)
			switch {
			case err == nil && granted:
				// Irreversible latch: the loop exits and the ticker stops,
				// so no later observation can downgrade this session.
				p.finish(patientID, s, StateGranted, onResult)
				return

			case errors.Is(err, ErrPermissionDenied):
				p.logger.WithField("patient_id", patientID).Debug("Consent status not yet visible to caller")

			case err != nil:
				// Transient failure; the next scheduled tick is the retry.
				// The attempt counter is not reset, so a flaky network still
				// respects the overall ceiling.
				p.logger.WithError(err).WithField("patient_id", patientID).Warn("Consent status check failed")
			}

			if attempts >= p.maxAttempts {
				p.finish(patientID, s, StateTimedOut, onResult)
				return
			}
		}
	}
}

func (p *Poller) finish(patientID string, s *session, state State, onResult func(Result)) {
	p.mu.Lock()
	s.state = state
	attempts := s.attempts
	// Release the per-patient guard so the map does not grow with every
	// patient ever polled and a later session can start cleanly.
	if cur, ok := p.sessions[patientID]; ok && cur == s {
		delete(p.sessions, patientID)
	}
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"state":      state,
		"attempts":   attempts,
	}).Info("Consent polling session finished")

	if onResult != nil {
		onResult(Result{PatientID: patientID, State: state, Attempts: attempts})
	}
}
