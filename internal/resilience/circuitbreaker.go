// Package resilience keeps long transcription runs going when a recognition
// backend misbehaves.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a backend after repeated failures. [FallbackGroup] chains
// several backends, each behind its own breaker, and [ASRFallback] applies it
// to speech recognition so a dead whisper server falls through to the next
// configured provider for the remaining speech segments.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is in
// the open state and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the normal operating state; all calls are forwarded.
	StateClosed State = iota

	// StateOpen indicates the breaker has tripped due to consecutive failures.
	// Calls are rejected immediately with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the reset timeout. A limited
	// number of calls are allowed through; if they succeed the breaker closes,
	// otherwise it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs and callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens the
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open the first time.
	// Default: 30s.
	ResetTimeout time.Duration

	// MaxResetTimeout caps the open period, which doubles every time a probe
	// fails. Default: 8 x ResetTimeout.
	MaxResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes that closes the
	// breaker again. Probes run one at a time. Default: 3.
	HalfOpenMax int

	// IsFailure decides which errors count against the breaker. Errors it
	// rejects are returned to the caller but leave the counters untouched.
	// Nil counts every error except context cancellation.
	IsFailure func(error) bool

	// OnStateChange, if set, is called after every transition with the lock
	// released.
	OnStateChange func(name string, from, to State)

	// Clock replaces [time.Now].
	Clock func() time.Time
}

// countsAsFailure is the default IsFailure.
func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// Snapshot is a point-in-time view of a [CircuitBreaker].
type Snapshot struct {
	State State

	// Failures is the current run of consecutive failures.
	Failures int

	// RetryAt is when an open breaker admits the next probe.
	RetryAt time.Time
}

// CircuitBreaker guards one recognition backend. After MaxFailures
// consecutive failures it rejects calls with [ErrCircuitOpen] until the open
// period elapses, then lets single probe calls through. HalfOpenMax
// successful probes close it; a failed probe re-opens it for twice as long.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openFor  time.Duration
	retryAt  time.Time
	probing  bool
	probesOK int
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero-value config fields are
// replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.MaxResetTimeout < cfg.ResetTimeout {
		cfg.MaxResetTimeout = 8 * cfg.ResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsAsFailure
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed, openFor: cfg.ResetTimeout}
}

// Execute runs fn unless the breaker is open or a probe is already in
// flight, in which case it returns [ErrCircuitOpen] without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	probe, from, err := cb.admit()
	cb.mu.Unlock()
	if err != nil {
		return err
	}
	if probe && from == StateOpen {
		cb.notify(StateOpen, StateHalfOpen)
	}

	err = fn()

	cb.mu.Lock()
	before := cb.state
	switch {
	case err == nil:
		cb.succeeded(probe)
	case cb.cfg.IsFailure(err):
		cb.failed(probe)
	case probe:
		// The call says nothing about the backend; free the probe slot.
		cb.probing = false
	}
	after := cb.state
	cb.mu.Unlock()
	if before != after {
		cb.notify(before, after)
	}
	return err
}

// admit decides whether a call may run. Must be called with cb.mu held.
func (cb *CircuitBreaker) admit() (probe bool, from State, err error) {
	from = cb.state
	switch cb.state {
	case StateOpen:
		if cb.cfg.Clock().Before(cb.retryAt) {
			return false, from, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probesOK = 0
		slog.Info("circuit breaker probing", "name", cb.cfg.Name)
		fallthrough
	case StateHalfOpen:
		if cb.probing {
			return false, from, ErrCircuitOpen
		}
		cb.probing = true
		return true, from, nil
	}
	return false, from, nil
}

// failed must be called with cb.mu held.
func (cb *CircuitBreaker) failed(probe bool) {
	cb.failures++
	if probe {
		cb.probing = false
		cb.openFor = min(2*cb.openFor, cb.cfg.MaxResetTimeout)
		cb.open()
		return
	}
	if cb.state == StateClosed && cb.failures >= cb.cfg.MaxFailures {
		cb.open()
	}
}

// open must be called with cb.mu held.
func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.retryAt = cb.cfg.Clock().Add(cb.openFor)
	slog.Warn("circuit breaker opened",
		"name", cb.cfg.Name,
		"consecutive_failures", cb.failures,
		"retry_in", cb.openFor)
}

// succeeded must be called with cb.mu held.
func (cb *CircuitBreaker) succeeded(probe bool) {
	cb.failures = 0
	if !probe {
		return
	}
	cb.probing = false
	cb.probesOK++
	if cb.probesOK >= cb.cfg.HalfOpenMax {
		cb.close()
		slog.Info("circuit breaker closed after successful probes", "name", cb.cfg.Name)
	}
}

// close must be called with cb.mu held.
func (cb *CircuitBreaker) close() {
	cb.state = StateClosed
	cb.failures = 0
	cb.probesOK = 0
	cb.probing = false
	cb.openFor = cb.cfg.ResetTimeout
	cb.retryAt = time.Time{}
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// State returns the current [State]. An open breaker whose period has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	return cb.Snapshot().State
}

// Snapshot returns the breaker's state and counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := Snapshot{State: cb.state, Failures: cb.failures, RetryAt: cb.retryAt}
	if s.State == StateOpen && !cb.cfg.Clock().Before(cb.retryAt) {
		s.State = StateHalfOpen
	}
	return s
}

// Reset forces the breaker back to [StateClosed] and restores the initial
// open period.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.close()
	cb.mu.Unlock()
	slog.Info("circuit breaker manually reset", "name", cb.cfg.Name)
	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}

// Name returns the label the breaker was configured with.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }
