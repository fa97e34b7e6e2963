package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts p to rate. The input is returned unchanged when the rates
// already match.
func Resample(p PCM, rate int) (PCM, error) {
	if rate <= 0 {
		return PCM{}, fmt.Errorf("audio: resample: invalid target rate %d", rate)
	}
	if p.SampleRate == rate || len(p.Samples) == 0 {
		return PCM{Samples: p.Samples, SampleRate: rate}, nil
	}
	if p.SampleRate <= 0 {
		return PCM{}, fmt.Errorf("audio: resample: invalid source rate %d", p.SampleRate)
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(p.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return PCM{}, fmt.Errorf("audio: create resampler %d->%d: %w", p.SampleRate, rate, err)
	}

	in := make([]float64, len(p.Samples))
	for i, s := range p.Samples {
		in[i] = float64(s)
	}
	out, err := rs.Process(in)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: resample %d->%d: %w", p.SampleRate, rate, err)
	}

	samples := make([]float32, len(out))
	for i, s := range out {
		samples[i] = float32(max(-1, min(1, s)))
	}
	return PCM{Samples: samples, SampleRate: rate}, nil
}
