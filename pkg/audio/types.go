// Package audio decodes recordings into mono float32 PCM at the sample rate
// expected by the speech recogniser.
//
// WAV is decoded natively and Ogg Opus through gopus; every other container is
// converted by an external ffmpeg binary (see [FFmpeg]). Rate conversion uses a
// polyphase resampler.
package audio

import (
	"fmt"
	"time"
)

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string { return formatString(f.SampleRate, f.Channels) }

// PCM is a mono buffer of samples normalised to [-1, 1].
type PCM struct {
	Samples    []float32
	SampleRate int
}

// Duration is the length of the buffer.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(p.Samples)) * time.Second / time.Duration(p.SampleRate)
}

// Offset converts a sample index into a time offset.
func (p PCM) Offset(sample int) time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(sample) * time.Second / time.Duration(p.SampleRate)
}

// Index converts a time offset into a sample index clamped to the buffer.
func (p PCM) Index(d time.Duration) int {
	i := int(int64(d) * int64(p.SampleRate) / int64(time.Second))
	return max(0, min(i, len(p.Samples)))
}

// Slice returns the samples between start and end. The result shares the
// underlying array.
func (p PCM) Slice(start, end time.Duration) PCM {
	lo, hi := p.Index(start), p.Index(end)
	if hi < lo {
		hi = lo
	}
	return PCM{Samples: p.Samples[lo:hi], SampleRate: p.SampleRate}
}

func (p PCM) String() string {
	return fmt.Sprintf("%s %s", formatString(p.SampleRate, 1), p.Duration())
}
