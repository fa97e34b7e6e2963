package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/MrWong99/scribe/internal/transcript"
	"gopkg.in/yaml.v3"
)

// Default values applied by [ApplyDefaults].
const (
	DefaultCampaign            = "D&D Campaign"
	DefaultConfidenceThreshold = 50
	DefaultChunks              = 1
	DefaultSampleRate          = 16000
	DefaultParallelJobs        = 2
	DefaultLanguage            = "en"
	DefaultInputDir            = "tmp/input"
	DefaultOutputDir           = "tmp/output"
	DefaultVAD                 = "energy"
	DefaultVADThreshold        = 0.5
	DefaultMinSpeechSeconds    = 0.5
	DefaultMinSilenceSeconds   = 1.0
	DefaultPaddingSeconds      = 0.3
)

// DefaultSkipFilters are the whisper artefacts dropped when no skip_filters
// are configured.
var DefaultSkipFilters = []string{"[AUDIO OUT]", "[BLANK_AUDIO]"}

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"asr": {"whisper-native", "whisper-server", "openai", "mock"},
	"vad": {"energy", "mock"},
}

// LoadOption customises [LoadFromReader].
type LoadOption func(*loadOptions)

type loadOptions struct {
	lookup func(string) (string, bool)
}

// WithEnv applies environment overrides through lookup before validation.
// Pass [os.LookupEnv] for the process environment.
func WithEnv(lookup func(string) (string, bool)) LoadOption {
	return func(o *loadOptions) { o.lookup = lookup }
}

// Load reads the YAML configuration file at path, applies defaults and
// process environment overrides, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, WithEnv(os.LookupEnv))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and the
// configured overrides, and validates the result. An empty document yields
// the defaults. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader, opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if o.lookup != nil {
		if err := ApplyEnv(cfg, o.lookup); err != nil {
			return nil, err
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their default values. Speaker
// usernames are trimmed and indices left at 0 take their 1-based list
// position.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	for i := range cfg.Speakers {
		cfg.Speakers[i].Username = strings.TrimSpace(cfg.Speakers[i].Username)
		if cfg.Speakers[i].Index == 0 {
			cfg.Speakers[i].Index = i + 1
		}
	}

	c := &cfg.Combine
	if c.Dedup == "" {
		c.Dedup = transcript.DedupConsecutive
	}
	if c.SkipFilters == nil {
		c.SkipFilters = slices.Clone(DefaultSkipFilters)
	}
	if c.Chunks == 0 {
		c.Chunks = DefaultChunks
	}
	if c.Campaign == "" {
		c.Campaign = DefaultCampaign
	}
	if c.ConfidenceThreshold == nil {
		th := float64(DefaultConfidenceThreshold)
		c.ConfidenceThreshold = &th
	}

	if cfg.Paths.InputDir == "" {
		cfg.Paths.InputDir = DefaultInputDir
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = DefaultOutputDir
	}

	if cfg.ASR.Language == "" {
		cfg.ASR.Language = DefaultLanguage
	}
	if cfg.ASR.Mode == "" {
		cfg.ASR.Mode = ModeVAD
	}

	v := &cfg.VAD
	if v.Name == "" {
		v.Name = DefaultVAD
	}
	if v.Threshold == 0 {
		v.Threshold = DefaultVADThreshold
	}
	if v.MinSpeechSeconds == 0 {
		v.MinSpeechSeconds = DefaultMinSpeechSeconds
	}
	if v.MinSilenceSeconds == 0 {
		v.MinSilenceSeconds = DefaultMinSilenceSeconds
	}
	if v.PaddingSeconds == 0 {
		v.PaddingSeconds = DefaultPaddingSeconds
	}

	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Batch.ParallelJobs == 0 {
		cfg.Batch.ParallelJobs = DefaultParallelJobs
	}
}

// Validate checks that cfg contains a coherent set of values and compiles
// the content filters into cfg.Combine.Patterns. Every problem found is
// returned inside a single [*ConfigurationError].
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Speakers
	usernames := make(map[string]int, len(cfg.Speakers))
	indices := make(map[int]int, len(cfg.Speakers))
	for i, sp := range cfg.Speakers {
		prefix := fmt.Sprintf("speakers[%d]", i)
		name := strings.TrimSpace(sp.Username)
		if name == "" {
			errs = append(errs, fmt.Errorf("%s.username is required", prefix))
		} else {
			if prev, ok := usernames[name]; ok {
				errs = append(errs, fmt.Errorf("%s.username %q is a duplicate of speakers[%d]", prefix, name, prev))
			}
			usernames[name] = i
		}
		if sp.Index < 1 {
			errs = append(errs, fmt.Errorf("%s.index %d must be positive", prefix, sp.Index))
		} else {
			if prev, ok := indices[sp.Index]; ok {
				errs = append(errs, fmt.Errorf("%s.index %d is a duplicate of speakers[%d]", prefix, sp.Index, prev))
			}
			indices[sp.Index] = i
		}
		if strings.TrimSpace(sp.Player) == "" && strings.TrimSpace(sp.Character) == "" {
			slog.Warn("speaker has neither player nor character; the username will be used as label", "username", sp.Username)
		}
	}

	// Combine
	c := &cfg.Combine
	if !c.Dedup.IsValid() {
		errs = append(errs, fmt.Errorf("combine.dedup %q is invalid; valid values: none, consecutive, unique", c.Dedup))
	}
	if th := c.Threshold(); th < 0 || th > 100 {
		errs = append(errs, fmt.Errorf("combine.confidence_threshold %.2f is out of range [0, 100]", th))
	}
	if c.Chunks < 1 {
		errs = append(errs, fmt.Errorf("combine.chunks %d must be at least 1", c.Chunks))
	}
	if c.MinEntriesPerChunk < 0 {
		errs = append(errs, fmt.Errorf("combine.min_entries_per_chunk %d must not be negative", c.MinEntriesPerChunk))
	}
	patterns, err := transcript.ParsePatterns(c.SkipFilters)
	if err != nil {
		errs = append(errs, fmt.Errorf("combine.%w", err))
	}
	c.Patterns = patterns

	// ASR
	if !cfg.ASR.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("asr.mode %q is invalid; valid values: vad, full", cfg.ASR.Mode))
	}
	if cfg.ASR.Temperature < 0 || cfg.ASR.Temperature > 1 {
		errs = append(errs, fmt.Errorf("asr.temperature %.2f is out of range [0, 1]", cfg.ASR.Temperature))
	}
	for i, p := range cfg.ASR.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("asr.providers[%d].name is required", i))
			continue
		}
		validateProviderName("asr", p.Name)
	}

	// VAD
	validateProviderName("vad", cfg.VAD.Name)
	if cfg.VAD.Threshold <= 0 || cfg.VAD.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("vad.threshold %.2f is out of range (0, 1)", cfg.VAD.Threshold))
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"vad.min_speech_seconds", cfg.VAD.MinSpeechSeconds},
		{"vad.min_silence_seconds", cfg.VAD.MinSilenceSeconds},
		{"vad.padding_seconds", cfg.VAD.PaddingSeconds},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("%s %.2f must not be negative", f.name, f.v))
		}
	}

	// Audio & batch
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 48000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is out of range [8000, 48000]", cfg.Audio.SampleRate))
	}
	if cfg.Batch.ParallelJobs < 1 {
		errs = append(errs, fmt.Errorf("batch.parallel_jobs %d must be at least 1", cfg.Batch.ParallelJobs))
	}

	if cfg.Archive.PostgresDSN == "" {
		slog.Debug("archive.postgres_dsn is empty; combined sessions will not be archived")
	}

	return invalid(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
