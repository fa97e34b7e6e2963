// Package energy implements an offline, frame-energy voice activity detector.
//
// Each 30 ms frame is scored by where its level (dBFS) sits between the
// recording's noise floor and its speech level, estimated from the 10th and
// 95th percentile frame levels. The score is compared with the configured
// threshold, so 0.5 marks frames at least halfway between floor and speech.
package energy

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/MrWong99/scribe/pkg/audio"
	"github.com/MrWong99/scribe/pkg/provider/vad"
)

const (
	defaultFrame = 30 * time.Millisecond

	// Recordings whose loud frames never exceed this level are silent.
	silenceDBFS = -50.0

	// Below this dynamic range the recording is treated as uniform: all
	// speech or all silence, depending on its level.
	minRangeDB = 6.0
)

// Compile-time assertion that Segmenter implements vad.Segmenter.
var _ vad.Segmenter = (*Segmenter)(nil)

// Option is a functional option for configuring a Segmenter.
type Option func(*Segmenter)

// WithFrame sets the analysis frame length. Defaults to 30 ms.
func WithFrame(d time.Duration) Option {
	return func(s *Segmenter) {
		if d > 0 {
			s.frame = d
		}
	}
}

// Segmenter is the energy-based detector. It holds no per-call state.
type Segmenter struct {
	frame time.Duration
}

// New returns a Segmenter.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{frame: defaultFrame}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Segment implements vad.Segmenter.
func (s *Segmenter) Segment(ctx context.Context, pcm audio.PCM, cfg vad.Config) ([]vad.Interval, error) {
	if pcm.SampleRate <= 0 {
		return nil, fmt.Errorf("energy vad: invalid sample rate %d", pcm.SampleRate)
	}
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("energy vad: threshold %.2f is out of range (0, 1)", cfg.Threshold)
	}
	frameLen := int(int64(pcm.SampleRate) * int64(s.frame) / int64(time.Second))
	if frameLen <= 0 || len(pcm.Samples) == 0 {
		return nil, nil
	}

	levels := make([]float64, 0, len(pcm.Samples)/frameLen+1)
	for off := 0; off < len(pcm.Samples); off += frameLen {
		if off%(frameLen*1000) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("energy vad: %w", err)
			}
		}
		end := min(off+frameLen, len(pcm.Samples))
		levels = append(levels, dbfs(audio.RMS(pcm.Samples[off:end])))
	}

	scores := Scores(levels)
	var (
		raw      []vad.Interval
		inSpeech bool
		start    int
	)
	for i, sc := range scores {
		speech := sc >= cfg.Threshold
		switch {
		case speech && !inSpeech:
			inSpeech, start = true, i
		case !speech && inSpeech:
			inSpeech = false
			raw = append(raw, s.interval(pcm, frameLen, start, i))
		}
	}
	if inSpeech {
		raw = append(raw, s.interval(pcm, frameLen, start, len(scores)))
	}
	return vad.Normalize(raw, cfg, pcm.Duration()), nil
}

func (s *Segmenter) interval(pcm audio.PCM, frameLen, from, to int) vad.Interval {
	return vad.Interval{
		Start: pcm.Offset(from * frameLen),
		End:   pcm.Offset(min(to*frameLen, len(pcm.Samples))),
	}
}

// Scores maps frame levels in dBFS onto [0, 1] between the estimated noise
// floor and speech level.
func Scores(levels []float64) []float64 {
	out := make([]float64, len(levels))
	if len(levels) == 0 {
		return out
	}
	sorted := slices.Clone(levels)
	slices.Sort(sorted)
	floor := percentile(sorted, 0.10)
	peak := percentile(sorted, 0.95)

	if peak-floor < minRangeDB {
		v := 0.0
		if peak > silenceDBFS {
			v = 1
		}
		for i := range out {
			out[i] = v
		}
		return out
	}
	for i, l := range levels {
		out[i] = max(0, min(1, (l-floor)/(peak-floor)))
		if l <= silenceDBFS {
			out[i] = 0
		}
	}
	return out
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Round(p * float64(len(sorted)-1)))
	return sorted[idx]
}

func dbfs(rms float64) float64 {
	if rms <= 1e-10 {
		return -200
	}
	return 20 * math.Log10(rms)
}
