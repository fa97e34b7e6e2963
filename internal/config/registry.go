package config

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/MrWong99/scribe/pkg/provider/asr"
	"github.com/MrWong99/scribe/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	asr map[string]func(ProviderEntry) (asr.Provider, error)
	vad map[string]func(VADConfig) (vad.Segmenter, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr: make(map[string]func(ProviderEntry) (asr.Provider, error)),
		vad: make(map[string]func(VADConfig) (vad.Segmenter, error)),
	}
}

// RegisterASR registers a speech recognition provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterVAD registers a segmenter factory under name.
func (r *Registry) RegisterVAD(name string, factory func(VADConfig) (vad.Segmenter, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// CreateASR instantiates an ASR provider using the factory registered under entry.Name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateASRChain instantiates every entry of cfg.Providers in order. The
// first element is the primary; the rest are fallbacks.
func (r *Registry) CreateASRChain(cfg ASRConfig) ([]asr.Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("config: asr.providers is empty")
	}
	out := make([]asr.Provider, 0, len(cfg.Providers))
	for i, entry := range cfg.Providers {
		p, err := r.CreateASR(entry)
		if err != nil {
			return nil, fmt.Errorf("config: asr.providers[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// CreateVAD instantiates the segmenter registered under cfg.Name.
func (r *Registry) CreateVAD(cfg VADConfig) (vad.Segmenter, error) {
	r.mu.RLock()
	factory, ok := r.vad[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// Segmentation converts the seconds-based settings into a [vad.Config].
func (v VADConfig) Segmentation() vad.Config {
	return vad.Config{
		Threshold:  v.Threshold,
		MinSpeech:  seconds(v.MinSpeechSeconds),
		MinSilence: seconds(v.MinSilenceSeconds),
		Padding:    seconds(v.PaddingSeconds),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
