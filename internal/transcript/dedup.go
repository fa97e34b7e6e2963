package transcript

import (
	"fmt"
	"strings"
)

// DedupStrategy selects how repeated cue text is collapsed.
type DedupStrategy string

const (
	// DedupNone keeps every cue.
	DedupNone DedupStrategy = "none"

	// DedupConsecutive drops a cue whose text equals the text of the
	// previously retained cue, regardless of speaker.
	DedupConsecutive DedupStrategy = "consecutive"

	// DedupUnique keeps only the first occurrence of each distinct text.
	DedupUnique DedupStrategy = "unique"
)

// IsValid reports whether s is a recognised strategy.
func (s DedupStrategy) IsValid() bool {
	switch s {
	case DedupNone, DedupConsecutive, DedupUnique:
		return true
	}
	return false
}

// ParseDedupStrategy parses s case-insensitively. "false" and the empty
// string are accepted as aliases for [DedupNone].
func ParseDedupStrategy(s string) (DedupStrategy, error) {
	switch v := DedupStrategy(strings.ToLower(strings.TrimSpace(s))); v {
	case "", "false":
		return DedupNone, nil
	default:
		if v.IsValid() {
			return v, nil
		}
	}
	return "", fmt.Errorf("transcript: unknown dedup strategy %q; valid values: none, consecutive, unique", s)
}

// Dedupe applies strategy to entries and returns the retained entries in
// order. Text is compared exactly; speaker labels are ignored. An empty input
// is returned as is.
func Dedupe(entries []Entry, strategy DedupStrategy) ([]Entry, error) {
	switch strategy {
	case DedupNone:
		return entries, nil
	case DedupConsecutive:
		out := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if len(out) > 0 && out[len(out)-1].Text == e.Text {
				continue
			}
			out = append(out, e)
		}
		return out, nil
	case DedupUnique:
		out := make([]Entry, 0, len(entries))
		seen := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			if _, dup := seen[e.Text]; dup {
				continue
			}
			seen[e.Text] = struct{}{}
			out = append(out, e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("transcript: unknown dedup strategy %q", strategy)
}
