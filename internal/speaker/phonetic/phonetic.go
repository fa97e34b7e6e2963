// Package phonetic ranks configured speaker usernames by how closely they
// resemble a name that failed to resolve, so that resolution errors can say
// "did you mean ...".
//
// Ranking works in two stages:
//
//  1. Phonetic candidates: Double Metaphone codes are computed for every
//     alphabetic token of the input (digits, separators and suffixes such as
//     "16khz" are split off) and of each candidate. Candidates sharing a code
//     with the input are accepted when their Jaro-Winkler similarity reaches
//     the phonetic threshold.
//  2. Fuzzy fallback: candidates without phonetic overlap are accepted only
//     above the (higher) fuzzy threshold.
//
// Phonetic candidates always rank before fuzzy ones; ties keep the candidate
// order given by the caller.
package phonetic

import (
	"slices"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
	defaultLimit             = 3
)

// Option is a functional option for configuring a [Suggester].
type Option func(*Suggester)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for candidates
// that share a Double Metaphone code with the input. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(s *Suggester) { s.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for candidates
// without phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(s *Suggester) { s.fuzzyThreshold = threshold }
}

// WithLimit caps the number of suggestions returned. Default: 3.
func WithLimit(n int) Option {
	return func(s *Suggester) { s.limit = n }
}

// Suggester is read-only after construction and safe for concurrent use.
type Suggester struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	limit             int
}

// Suggestion is a ranked candidate.
type Suggestion struct {
	Value    string
	Score    float64
	Phonetic bool
}

// New returns a [Suggester] configured with opts.
func New(opts ...Option) *Suggester {
	s := &Suggester{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		limit:             defaultLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Suggest returns up to the configured limit of candidates resembling name,
// best first. It returns nil when nothing clears the thresholds.
func (s *Suggester) Suggest(name string, candidates []string) []Suggestion {
	tokens := tokenize(name)
	if len(tokens) == 0 || len(candidates) == 0 {
		return nil
	}
	inputCodes := codesFor(tokens)
	joined := strings.Join(tokens, "")

	var out []Suggestion
	for _, c := range candidates {
		ctoks := tokenize(c)
		if len(ctoks) == 0 {
			continue
		}
		score := bestScore(tokens, ctoks, joined, strings.Join(ctoks, ""))
		phon := overlaps(inputCodes, codesFor(ctoks))
		switch {
		case phon && score >= s.phoneticThreshold:
			out = append(out, Suggestion{Value: c, Score: score, Phonetic: true})
		case !phon && score >= s.fuzzyThreshold:
			out = append(out, Suggestion{Value: c, Score: score})
		}
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		if a.Phonetic != b.Phonetic {
			if a.Phonetic {
				return -1
			}
			return 1
		}
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if s.limit > 0 && len(out) > s.limit {
		out = out[:s.limit]
	}
	return out
}

// tokenize lowercases s and splits it into alphabetic runs. Tokens that
// carry digits (sample-rate tags, index prefixes) are dropped.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	toks := fields[:0]
	for _, f := range fields {
		if strings.IndexFunc(f, unicode.IsDigit) >= 0 {
			continue
		}
		toks = append(toks, f)
	}
	return toks
}

func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestScore is the maximum Jaro-Winkler similarity over the concatenated
// token strings and every token pair.
func bestScore(in, cand []string, inJoined, candJoined string) float64 {
	score := matchr.JaroWinkler(inJoined, candJoined, false)
	for _, a := range in {
		for _, b := range cand {
			if v := matchr.JaroWinkler(a, b, false); v > score {
				score = v
			}
		}
	}
	return score
}
