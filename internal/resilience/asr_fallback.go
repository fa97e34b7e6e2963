package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
)

// ASRFallback implements [asr.Provider] with automatic failover across multiple
// recognition backends. Each backend has its own circuit breaker.
type ASRFallback struct {
	group *FallbackGroup[asr.Provider]
}

// Compile-time interface assertion.
var _ asr.Provider = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred backend.
// Empty audio is treated as permanent in addition to cfg.Permanent.
func NewASRFallback(primary asr.Provider, primaryName string, cfg FallbackConfig) *ASRFallback {
	perm := cfg.Permanent
	cfg.Permanent = func(err error) bool {
		return errors.Is(err, asr.ErrEmptyAudio) || (perm != nil && perm(err))
	}
	return &ASRFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional ASR provider as a fallback.
func (f *ASRFallback) AddFallback(name string, provider asr.Provider) {
	f.group.AddFallback(name, provider)
}

// Providers returns the backend names in the order they are tried.
func (f *ASRFallback) Providers() []string { return f.group.Names() }

// Health reports the breaker state of each backend.
func (f *ASRFallback) Health() map[string]State { return f.group.States() }

// Check fails when every backend's breaker is open, so readiness probes see
// a run that can no longer transcribe.
func (f *ASRFallback) Check(context.Context) error {
	if f.group.Available() {
		return nil
	}
	return fmt.Errorf("resilience: every asr provider is unavailable: %v", f.group.States())
}

// Transcribe sends req to the first healthy provider. If it fails the next
// one is tried with the same request.
func (f *ASRFallback) Transcribe(ctx context.Context, req asr.Request) ([]cue.RawSegment, error) {
	return ExecuteWithResult(ctx, f.group, func(p asr.Provider) ([]cue.RawSegment, error) {
		return p.Transcribe(ctx, req)
	})
}
