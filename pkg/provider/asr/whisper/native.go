// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Compile-time assertion that NativeProvider satisfies asr.Provider.
var _ asr.Provider = (*NativeProvider)(nil)

// NativeProvider implements asr.Provider using whisper.cpp Go bindings
// (CGO). The model is loaded once and shared; every call creates its own
// context, so calls may run concurrently.
type NativeProvider struct {
	model    whisperlib.Model
	language string

	closeOnce sync.Once
	closeErr  error
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the default language used when a request does not
// carry one (e.g., "en", "de"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{model: model, language: "en"}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *NativeProvider) Close() error {
	p.closeOnce.Do(func() {
		if p.model != nil {
			p.closeErr = p.model.Close()
		}
	})
	return p.closeErr
}

// Transcribe runs whisper.cpp inference on req.Samples. The samples must be
// 16 kHz mono. Segment confidence is the mean token probability scaled to
// 0–100.
func (p *NativeProvider) Transcribe(ctx context.Context, req asr.Request) ([]cue.RawSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	if len(req.Samples) == 0 {
		return nil, asr.ErrEmptyAudio
	}
	if req.SampleRate > 0 && req.SampleRate != whisperlib.SampleRate {
		return nil, fmt.Errorf("whisper: native inference needs %d Hz audio, got %d", whisperlib.SampleRate, req.SampleRate)
	}

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}
	if req.Prompt != "" {
		wctx.SetInitialPrompt(req.Prompt)
	}
	wctx.SetTemperature(float32(req.Temperature))

	if err := wctx.Process(req.Samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var out []cue.RawSegment
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		out = append(out, segmentToRaw(segment))
	}
	return out, nil
}

func segmentToRaw(s whisperlib.Segment) cue.RawSegment {
	raw := cue.RawSegment{
		Start: cue.Seconds(s.Start),
		End:   cue.Seconds(s.End),
		Text:  s.Text,
	}
	probs := make([]float64, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		probs = append(probs, float64(t.P))
	}
	raw.Confidence = meanProbability(probs)
	return raw
}

// meanProbability returns the mean of probs scaled to 0–100, or 0 for an
// empty slice.
func meanProbability(probs []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range probs {
		sum += p
	}
	return max(0, min(100, sum/float64(len(probs))*100))
}
