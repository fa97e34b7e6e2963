// Package vad defines the Segmenter interface for offline voice activity
// detection.
//
// A segmenter scans a whole recording and returns the speech intervals in
// time order. The transcriber feeds each interval to the ASR backend
// separately and shifts the returned timestamps by the interval start.
//
// Implementations must be safe for concurrent use.
package vad

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/MrWong99/scribe/pkg/audio"
)

// Config holds the segmentation parameters.
type Config struct {
	// Threshold is the speech probability above which a frame counts as
	// speech. Range: (0.0, 1.0). Typical: 0.5.
	Threshold float64

	// MinSpeech drops speech regions shorter than this.
	MinSpeech time.Duration

	// MinSilence is the shortest gap that separates two regions; shorter
	// gaps are bridged.
	MinSilence time.Duration

	// Padding extends every region on both sides, clamped to the recording.
	Padding time.Duration
}

// Interval is one speech region.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// Duration is the length of the interval.
func (iv Interval) Duration() time.Duration { return iv.End - iv.Start }

// Segmenter finds speech in a recording.
type Segmenter interface {
	// Segment returns the speech intervals of pcm, sorted and
	// non-overlapping.
	Segment(ctx context.Context, pcm audio.PCM, cfg Config) ([]Interval, error)
}

// Normalize sorts intervals, bridges gaps shorter than cfg.MinSilence, drops
// regions shorter than cfg.MinSpeech, applies cfg.Padding clamped to
// [0, total], and merges any overlap the padding introduced.
func Normalize(intervals []Interval, cfg Config, total time.Duration) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	ivs := slices.Clone(intervals)
	slices.SortFunc(ivs, func(a, b Interval) int {
		return cmp.Or(cmp.Compare(a.Start, b.Start), cmp.Compare(a.End, b.End))
	})

	bridged := ivs[:1]
	for _, iv := range ivs[1:] {
		last := &bridged[len(bridged)-1]
		if iv.Start-last.End < cfg.MinSilence {
			last.End = max(last.End, iv.End)
			continue
		}
		bridged = append(bridged, iv)
	}

	var out []Interval
	for _, iv := range bridged {
		if iv.Duration() < cfg.MinSpeech {
			continue
		}
		iv.Start = max(0, iv.Start-cfg.Padding)
		iv.End = iv.End + cfg.Padding
		if total > 0 {
			iv.End = min(total, iv.End)
		}
		if n := len(out); n > 0 && iv.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}
