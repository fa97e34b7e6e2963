// Package mock provides a test double for the asr package interface.
//
// Use Provider to return canned segments and to inspect the requests a caller
// issued.
//
// Example:
//
//	p := &mock.Provider{Segments: []cue.RawSegment{{Start: 0, End: 1, Text: "hi", Confidence: 90}}}
//	segs, _ := p.Transcribe(ctx, req)
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
)

// Provider is a mock implementation of asr.Provider.
type Provider struct {
	mu sync.Mutex

	// Segments is returned (cloned) from every Transcribe call unless
	// SegmentsFunc is set.
	Segments []cue.RawSegment

	// SegmentsFunc, if non-nil, computes the response for each request.
	SegmentsFunc func(req asr.Request) []cue.RawSegment

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every request passed to Transcribe.
	Calls []asr.Request
}

// Transcribe records the call and returns the configured response.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) ([]cue.RawSegment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if p.SegmentsFunc != nil {
		return p.SegmentsFunc(req), nil
	}
	return slices.Clone(p.Segments), nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements asr.Provider at compile time.
var _ asr.Provider = (*Provider)(nil)
