package speaker

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MrWong99/scribe/internal/speaker/phonetic"
)

// Resolver resolves artifact names to [Mapping] values. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	byUsername map[string]Mapping
	ordered    []Mapping
	suggester  *phonetic.Suggester
}

// NewResolver builds a Resolver over mappings. Usernames must be non-blank,
// trimmed and unique; indices must be positive and unique. The returned resolver lists
// speakers in ascending index order.
func NewResolver(mappings []Mapping) (*Resolver, error) {
	r := &Resolver{
		byUsername: make(map[string]Mapping, len(mappings)),
		suggester:  phonetic.New(),
	}
	seenIdx := make(map[int]string, len(mappings))
	var errs []error
	for i, m := range mappings {
		if strings.TrimSpace(m.Username) == "" {
			errs = append(errs, fmt.Errorf("speaker: mapping %d: username is required", i))
			continue
		}
		if strings.TrimSpace(m.Username) != m.Username {
			errs = append(errs, fmt.Errorf("speaker: mapping %d: username %q has surrounding whitespace", i, m.Username))
			continue
		}
		if _, dup := r.byUsername[m.Username]; dup {
			errs = append(errs, fmt.Errorf("speaker: mapping %d: duplicate username %q", i, m.Username))
			continue
		}
		if m.Index <= 0 {
			errs = append(errs, fmt.Errorf("speaker: mapping %q: index must be >= 1, got %d", m.Username, m.Index))
			continue
		}
		if prev, dup := seenIdx[m.Index]; dup {
			errs = append(errs, fmt.Errorf("speaker: mapping %q: index %d already used by %q", m.Username, m.Index, prev))
			continue
		}
		seenIdx[m.Index] = m.Username
		r.byUsername[m.Username] = m
		r.ordered = append(r.ordered, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	slices.SortFunc(r.ordered, func(a, b Mapping) int { return a.Index - b.Index })
	return r, nil
}

// Resolve returns the mapping for an artifact base name (no extension).
//
// Resolution order, first match wins:
//
//  1. name equals a configured username.
//  2. name has the form "{n}-{username}" or "{n}-{username}_{suffix}" where
//     {n} is all digits. The remainder after the first '-' is tried as a
//     whole, then cut at each '_' from the right, so usernames that contain
//     underscores still resolve.
//
// Comparison is case-sensitive. On failure a [*MappingResolutionError] is
// returned that lists the configured usernames.
func (r *Resolver) Resolve(name string) (Mapping, error) {
	if m, ok := r.byUsername[name]; ok {
		return m, nil
	}
	for _, cand := range Candidates(name) {
		if m, ok := r.byUsername[cand]; ok {
			return m, nil
		}
	}
	err := &MappingResolutionError{
		Name:       name,
		Configured: r.Usernames(),
	}
	for _, s := range r.suggester.Suggest(name, err.Configured) {
		err.Suggestions = append(err.Suggestions, s.Value)
	}
	return Mapping{}, err
}

// Usernames returns the configured usernames in ascending index order.
func (r *Resolver) Usernames() []string {
	out := make([]string, len(r.ordered))
	for i, m := range r.ordered {
		out[i] = m.Username
	}
	return out
}

// Candidates returns the usernames that the "{n}-{username}[_{suffix}]"
// pattern extracts from name, most specific first. It returns nil when name
// does not follow the pattern. Blank candidates are never returned.
func Candidates(name string) []string {
	prefix, rest, ok := strings.Cut(name, "-")
	if !ok || prefix == "" || !allDigits(prefix) {
		return nil
	}
	var out []string
	for cand := rest; ; {
		if strings.TrimSpace(cand) != "" {
			out = append(out, cand)
		}
		i := strings.LastIndexByte(cand, '_')
		if i < 0 {
			break
		}
		cand = cand[:i]
	}
	return out
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
