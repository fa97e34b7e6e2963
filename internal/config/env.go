package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/transcript"
)

// MaxSpeakerIndex bounds the TRANSCRIPT_{N}_* scan performed by [ApplyEnv].
const MaxSpeakerIndex = 64

// ApplyEnv overlays environment variables read through lookup onto cfg.
//
// Speakers come from TRANSCRIPT_{N}_DIR (the username) together with
// TRANSCRIPT_{N}_PLAYER, _ROLE, _CHARACTER and _DESCRIPTION for N in
// 1..[MaxSpeakerIndex]; gaps in N are allowed. An env speaker replaces a file
// speaker with the same username and keeps its index. Otherwise it is
// appended with Index N, or with the next index above every assigned one when
// N is already taken.
//
// Scalar overrides: CAMPAIGN_NAME, DEDUPE_STRATEGY, INCLUDE_TIMESTAMPS,
// SKIP_FILTERS (comma-separated), CHUNKS, MIN_ENTRIES_PER_CHUNK,
// WHISPER_CONFIDENCE_THRESHOLD, PARALLEL_JOBS, LOG_LEVEL,
// TRANSCRIPTION_MODE, WHISPER_LANGUAGE, WHISPER_PROMPT and OPENAI_API_KEY.
//
// Values are trimmed and stripped of surrounding double quotes. Unparsable
// values are returned as a [*ConfigurationError].
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.Trim(strings.TrimSpace(v), `"`)
		return v, v != ""
	}
	var errs []error

	taken := make(map[int]bool, len(cfg.Speakers))
	maxIndex := 0
	for _, sp := range cfg.Speakers {
		taken[sp.Index] = true
		maxIndex = max(maxIndex, sp.Index)
	}

	for n := 1; n <= MaxSpeakerIndex; n++ {
		dir, ok := get(fmt.Sprintf("TRANSCRIPT_%d_DIR", n))
		if !ok {
			continue
		}
		field := func(name string) string {
			v, _ := get(fmt.Sprintf("TRANSCRIPT_%d_%s", n, name))
			return v
		}
		m := speaker.Mapping{
			Index:       n,
			Username:    dir,
			Player:      field("PLAYER"),
			Role:        field("ROLE"),
			Character:   field("CHARACTER"),
			Description: field("DESCRIPTION"),
		}
		replaced := false
		for i := range cfg.Speakers {
			if cfg.Speakers[i].Username == dir {
				m.Index = cfg.Speakers[i].Index
				cfg.Speakers[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			if taken[m.Index] {
				m.Index = maxIndex + 1
			}
			taken[m.Index] = true
			maxIndex = max(maxIndex, m.Index)
			cfg.Speakers = append(cfg.Speakers, m)
		}
	}

	if v, ok := get("CAMPAIGN_NAME"); ok {
		cfg.Combine.Campaign = v
	}
	if v, ok := get("DEDUPE_STRATEGY"); ok {
		s, err := transcript.ParseDedupStrategy(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DEDUPE_STRATEGY: %w", err))
		} else {
			cfg.Combine.Dedup = s
		}
	}
	if v, ok := get("INCLUDE_TIMESTAMPS"); ok {
		cfg.Combine.IncludeTimestamps = strings.EqualFold(v, "true")
	}
	if v, ok := get("SKIP_FILTERS"); ok {
		var filters []string
		for f := range strings.SplitSeq(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				filters = append(filters, f)
			}
		}
		cfg.Combine.SkipFilters = filters
	}
	envInt := func(key string, dst *int) {
		v, ok := get(key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	envInt("CHUNKS", &cfg.Combine.Chunks)
	envInt("MIN_ENTRIES_PER_CHUNK", &cfg.Combine.MinEntriesPerChunk)
	envInt("PARALLEL_JOBS", &cfg.Batch.ParallelJobs)

	if v, ok := get("WHISPER_CONFIDENCE_THRESHOLD"); ok {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("WHISPER_CONFIDENCE_THRESHOLD %q is not a number", v))
		} else {
			cfg.Combine.ConfidenceThreshold = &th
		}
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Server.LogLevel = LogLevel(strings.ToLower(v))
	}
	if v, ok := get("TRANSCRIPTION_MODE"); ok {
		cfg.ASR.Mode = TranscriptionMode(strings.ToLower(v))
	}
	if v, ok := get("WHISPER_LANGUAGE"); ok {
		cfg.ASR.Language = v
	}
	if v, ok := get("WHISPER_PROMPT"); ok {
		cfg.ASR.Prompt = v
	}
	if v, ok := get("OPENAI_API_KEY"); ok {
		for i := range cfg.ASR.Providers {
			if cfg.ASR.Providers[i].Name == "openai" && cfg.ASR.Providers[i].APIKey == "" {
				cfg.ASR.Providers[i].APIKey = v
			}
		}
	}

	return invalid(errs...)
}

// MapEnv adapts a map to the lookup signature of [ApplyEnv].
func MapEnv(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}
