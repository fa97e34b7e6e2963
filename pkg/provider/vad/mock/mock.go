// Package mock provides a test double for the vad package interface.
//
// Example:
//
//	seg := &mock.Segmenter{Intervals: []vad.Interval{{Start: 0, End: time.Second}}}
//	ivs, _ := seg.Segment(ctx, pcm, cfg)
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/scribe/pkg/audio"
	"github.com/MrWong99/scribe/pkg/provider/vad"
)

// SegmentCall records a single invocation of Segmenter.Segment.
type SegmentCall struct {
	// Samples is the number of samples passed in.
	Samples int
	// Cfg is the Config passed to Segment.
	Cfg vad.Config
}

// Segmenter is a mock implementation of vad.Segmenter.
type Segmenter struct {
	mu sync.Mutex

	// Intervals is returned (cloned) from every call.
	Intervals []vad.Interval

	// Err, if non-nil, is returned as the error from Segment.
	Err error

	// Calls records every call to Segment.
	Calls []SegmentCall
}

// Segment records the call and returns Intervals, Err.
func (s *Segmenter) Segment(_ context.Context, pcm audio.PCM, cfg vad.Config) ([]vad.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, SegmentCall{Samples: len(pcm.Samples), Cfg: cfg})
	if s.Err != nil {
		return nil, s.Err
	}
	return slices.Clone(s.Intervals), nil
}

// Ensure Segmenter implements vad.Segmenter at compile time.
var _ vad.Segmenter = (*Segmenter)(nil)
