package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrWong99/scribe/internal/archive"
	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/health"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/resilience"
	"github.com/MrWong99/scribe/internal/session"
	"github.com/MrWong99/scribe/pkg/audio"
	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
	asrmock "github.com/MrWong99/scribe/pkg/provider/asr/mock"
	oaasr "github.com/MrWong99/scribe/pkg/provider/asr/openai"
	"github.com/MrWong99/scribe/pkg/provider/asr/whisper"
	"github.com/MrWong99/scribe/pkg/provider/vad"
	"github.com/MrWong99/scribe/pkg/provider/vad/energy"
	vadmock "github.com/MrWong99/scribe/pkg/provider/vad/mock"
)

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("whisper-server", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, whisper.WithTimeout(d))
		}
		return whisper.NewServer(entry.BaseURL, opts...)
	})

	reg.RegisterASR("whisper-native", func(entry config.ProviderEntry) (asr.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterASR("openai", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []oaasr.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaasr.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaasr.WithOrganization(org))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, oaasr.WithTimeout(d))
		}
		return oaasr.New(entry.APIKey, entry.Model, opts...)
	})

	// mock answers every request with one segment spanning the whole clip,
	// which exercises the pipeline without a recogniser.
	reg.RegisterASR("mock", func(entry config.ProviderEntry) (asr.Provider, error) {
		text := optString(entry.Options, "text")
		return &asrmock.Provider{SegmentsFunc: func(req asr.Request) []cue.RawSegment {
			if req.SampleRate <= 0 || len(req.Samples) == 0 {
				return nil
			}
			end := float64(len(req.Samples)) / float64(req.SampleRate)
			return []cue.RawSegment{{Start: 0, End: end, Text: text, Confidence: 100}}
		}}, nil
	})

	// ── VAD ───────────────────────────────────────────────────────────────────

	reg.RegisterVAD("energy", func(config.VADConfig) (vad.Segmenter, error) {
		return energy.New(), nil
	})

	reg.RegisterVAD("mock", func(config.VADConfig) (vad.Segmenter, error) {
		return &vadmock.Segmenter{}, nil
	})
}

// recogniser is the configured ASR chain wrapped in breakers.
type recogniser struct {
	provider *resilience.ASRFallback
	primary  string
	members  []asr.Provider
}

// Close releases providers that hold resources, such as loaded models.
func (r *recogniser) Close() {
	for _, p := range r.members {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("closing asr provider", "err", err)
			}
		}
	}
}

// checkers returns a readiness check for the breakers and one for every
// member that can be pinged.
func (r *recogniser) checkers(names []string) []health.Checker {
	out := []health.Checker{{Name: "asr", Check: r.provider.Check}}
	for i, p := range r.members {
		pinger, ok := p.(interface{ Ping(context.Context) error })
		if !ok {
			continue
		}
		out = append(out, health.Checker{Name: "asr:" + names[i], Check: pinger.Ping})
	}
	return out
}

// buildRecogniser instantiates every configured ASR provider and chains them
// behind an [resilience.ASRFallback] whose breaker transitions are counted.
func buildRecogniser(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*recogniser, error) {
	chain, err := reg.CreateASRChain(cfg.ASR)
	if err != nil {
		return nil, err
	}
	names := providerNames(cfg)
	fb := resilience.NewASRFallback(chain[0], names[0], resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("asr circuit breaker changed state", "provider", name, "from", from, "to", to)
				m.RecordBreaker(context.Background(), name, to.String())
			},
		},
	})
	for i := 1; i < len(chain); i++ {
		fb.AddFallback(names[i], chain[i])
	}
	slog.Info("asr providers ready", "order", fb.Providers())
	return &recogniser{provider: fb, primary: names[0], members: chain}, nil
}

func providerNames(cfg *config.Config) []string {
	names := make([]string, len(cfg.ASR.Providers))
	for i, p := range cfg.ASR.Providers {
		names[i] = p.Name
	}
	return names
}

// buildTranscriber assembles the per-file pipeline from cfg.
func buildTranscriber(cfg *config.Config, reg *config.Registry, rec *recogniser, m *observe.Metrics) (*session.Transcriber, error) {
	loader := &audio.Loader{
		SampleRate: cfg.Audio.SampleRate,
		FFmpeg:     &audio.FFmpeg{Path: cfg.Audio.FFmpegPath},
	}
	opts := []session.TranscriberOption{
		session.WithRecognition(cfg.ASR.Language, cfg.ASR.Prompt, cfg.ASR.Temperature),
		session.WithThreshold(cfg.Combine.Threshold()),
		session.WithProviderName(rec.primary),
		session.WithMetrics(m),
	}
	if cfg.ASR.Mode == config.ModeVAD {
		seg, err := reg.CreateVAD(cfg.VAD)
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithSegmenter(seg, cfg.VAD.Segmentation()))
	}
	return session.NewTranscriber(loader, rec.provider, layoutFor(cfg), opts...), nil
}

// openArchive connects the optional archive. A connection failure is logged
// and archiving is disabled for the run rather than failing it.
func openArchive(ctx context.Context, cfg *config.Config) (store archive.Store, check *health.Checker, closeFn func()) {
	if cfg.Archive.PostgresDSN == "" {
		return nil, nil, func() {}
	}
	pg, err := archive.NewPostgres(ctx, cfg.Archive.PostgresDSN)
	if err != nil {
		slog.Warn("archive unavailable; combined sessions will not be archived", "err", err)
		return nil, nil, func() {}
	}
	return archive.NewGuard(pg), &health.Checker{Name: "archive", Check: pg.Ping}, pg.Close
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optDuration reads a Go duration string ("30s") from opts. Invalid values
// are logged and ignored.
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("ignoring invalid provider option", "key", key, "value", s, "err", fmt.Sprint(err))
		return 0
	}
	return d
}
