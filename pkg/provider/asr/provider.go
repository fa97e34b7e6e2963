// Package asr defines the Provider interface for batch speech recognition
// backends.
//
// A provider receives one mono PCM buffer per call and returns the recognised
// segments with offsets relative to the start of that buffer, each carrying a
// 0–100 confidence score. Callers splitting a recording into speech regions add
// the region offset themselves.
//
// Implementations must be safe for concurrent use.
package asr

import (
	"context"
	"errors"

	"github.com/MrWong99/scribe/pkg/cue"
)

// ErrEmptyAudio is returned when a request carries no samples.
var ErrEmptyAudio = errors.New("asr: empty audio")

// Request is one recognition call.
type Request struct {
	// Samples is mono PCM normalised to [-1, 1].
	Samples []float32

	// SampleRate of Samples in Hz. Whisper backends expect 16000.
	SampleRate int

	// Language is an ISO-639-1 code (e.g., "en"). Empty lets the backend
	// detect the language.
	Language string

	// Prompt primes the recogniser with vocabulary such as character and
	// place names.
	Prompt string

	// Temperature is the sampling temperature; 0 is deterministic.
	Temperature float64
}

// Provider is the abstraction over any ASR backend.
type Provider interface {
	// Transcribe recognises req and returns the segments in time order.
	// Offsets are relative to the first sample of req.
	Transcribe(ctx context.Context, req Request) ([]cue.RawSegment, error)
}
