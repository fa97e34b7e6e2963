package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when no entry of a [FallbackGroup] could serve a
// call, either because it failed or because its breaker was open.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures a [FallbackGroup] and the breaker of each entry.
type FallbackConfig struct {
	// CircuitBreaker is the template for every entry; Name is set to the
	// entry name.
	CircuitBreaker CircuitBreakerConfig

	// Permanent reports errors caused by the input rather than the backend.
	// Such an error is returned at once: no fallback is tried and no breaker
	// is charged. Context errors are always permanent.
	Permanent func(error) bool
}

type member[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds backends of one kind in preference order, each behind
// its own [CircuitBreaker].
//
// Entries must be added before the group is shared; calls are then safe for
// concurrent use.
type FallbackGroup[T any] struct {
	members []member[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group whose first entry is primary.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

func (fg *FallbackGroup[T]) permanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return fg.cfg.Permanent != nil && fg.cfg.Permanent(err)
}

// AddFallback appends an entry tried after all earlier ones.
func (fg *FallbackGroup[T]) AddFallback(name string, value T) {
	bc := fg.cfg.CircuitBreaker
	bc.Name = name
	counts := bc.IsFailure
	bc.IsFailure = func(err error) bool {
		return !fg.permanent(err) && (counts == nil || counts(err))
	}
	fg.members = append(fg.members, member[T]{name: name, value: value, breaker: NewCircuitBreaker(bc)})
}

// Names returns the entry names in preference order.
func (fg *FallbackGroup[T]) Names() []string {
	names := make([]string, len(fg.members))
	for i, m := range fg.members {
		names[i] = m.name
	}
	return names
}

// States returns the breaker state of every entry keyed by name.
func (fg *FallbackGroup[T]) States() map[string]State {
	states := make(map[string]State, len(fg.members))
	for _, m := range fg.members {
		states[m.name] = m.breaker.State()
	}
	return states
}

// Available reports whether at least one breaker would admit a call.
func (fg *FallbackGroup[T]) Available() bool {
	for _, m := range fg.members {
		if m.breaker.State() != StateOpen {
			return true
		}
	}
	return false
}

// Execute is [ExecuteWithResult] for calls without a result.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult calls fn with each entry in order until one succeeds.
// Entries with an open breaker are skipped. A permanent error is returned
// as is. When every entry fails, the error wraps [ErrAllFailed] together with
// each entry's failure.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for i := range fg.members {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		m := &fg.members[i]
		var out R
		err := m.breaker.Execute(func() error {
			var err error
			out, err = fn(m.value)
			return err
		})
		switch {
		case err == nil:
			if i > 0 {
				slog.Debug("served by fallback provider", "provider", m.name)
			}
			return out, nil
		case fg.permanent(err):
			return zero, err
		case errors.Is(err, ErrCircuitOpen):
			slog.Debug("skipping provider with open circuit", "provider", m.name)
		default:
			slog.Warn("provider failed, trying next", "provider", m.name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
