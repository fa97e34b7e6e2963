package transcript

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// PatternKind distinguishes the two content-filter pattern variants.
type PatternKind int

const (
	// PatternLiteral drops cues whose text contains the pattern verbatim.
	PatternLiteral PatternKind = iota
	// PatternRegex drops cues whose text matches the regular expression.
	PatternRegex
)

// Pattern is a content-filter rule decided once at configuration load time.
// The zero value is not usable; build patterns with [ParsePattern].
type Pattern struct {
	kind    PatternKind
	source  string
	literal string
	re      *regexp.Regexp
}

// ErrEmptyPattern is returned for blank patterns and for "//".
var ErrEmptyPattern = errors.New("transcript: empty filter pattern")

// ParsePattern classifies s: text wrapped in "/.../" is compiled as a regular
// expression, anything else is a case-sensitive literal substring.
func ParsePattern(s string) (Pattern, error) {
	if strings.TrimSpace(s) == "" {
		return Pattern{}, ErrEmptyPattern
	}
	if len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		expr := s[1 : len(s)-1]
		if expr == "" {
			return Pattern{}, ErrEmptyPattern
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return Pattern{}, fmt.Errorf("transcript: filter pattern %q: %w", s, err)
		}
		return Pattern{kind: PatternRegex, source: s, re: re}, nil
	}
	return Pattern{kind: PatternLiteral, source: s, literal: s}, nil
}

// MustParsePattern is like [ParsePattern] but panics on error. For tests and
// package-level defaults.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePatterns parses every non-blank entry of list and joins all errors.
func ParsePatterns(list []string) ([]Pattern, error) {
	var (
		out  []Pattern
		errs []error
	)
	for i, s := range list {
		if strings.TrimSpace(s) == "" {
			continue
		}
		p, err := ParsePattern(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("skip_filters[%d]: %w", i, err))
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

// Kind reports the pattern variant.
func (p Pattern) Kind() PatternKind { return p.kind }

// String returns the pattern as configured.
func (p Pattern) String() string { return p.source }

// Match reports whether text is caught by p.
func (p Pattern) Match(text string) bool {
	switch p.kind {
	case PatternRegex:
		return p.re != nil && p.re.MatchString(text)
	default:
		return p.literal != "" && strings.Contains(text, p.literal)
	}
}

// Filter returns the entries that match none of patterns, in order, and the
// number dropped. Entries whose text is blank are dropped as well.
func Filter(entries []Entry, patterns []Pattern) ([]Entry, int) {
	out := make([]Entry, 0, len(entries))
outer:
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		for _, p := range patterns {
			if p.Match(e.Text) {
				continue outer
			}
		}
		out = append(out, e)
	}
	return out, len(entries) - len(out)
}
