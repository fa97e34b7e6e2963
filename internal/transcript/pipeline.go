// Package transcript implements the transcript combination engine: it turns
// per-speaker cue sequences into the final, speaker-labelled session
// documents.
//
// The engine is a chain of pure, in-memory stages:
//
//  1. [Generate]: per speaker, raw ASR output to confidence-filtered cues.
//  2. [Merge]: k-way merge of all speakers by start time.
//  3. [Filter]: drop cues matching configured skip patterns.
//  4. [Dedupe]: none, consecutive or unique text deduplication.
//  5. [Chunk]: split into near-equal parts under a minimum-size rule.
//  6. [Render]: summary header plus transcript body per part.
//
// [Combiner] runs stages 2 to 6 for one session. It holds only immutable
// settings and is safe for concurrent use across sessions.
package transcript

import (
	"fmt"
	"slices"

	"github.com/MrWong99/scribe/internal/speaker"
)

const (
	defaultChunks = 1
)

// Stats counts entries at each stage of a [Combiner.Combine] run.
type Stats struct {
	Speakers     int
	Merged       int
	Filtered     int // dropped by content filters
	Deduplicated int // dropped by deduplication
	Kept         int
}

// Output is the result of combining one session.
type Output struct {
	Summary   []speaker.Mapping
	Entries   []Entry
	Chunks    [][]Entry
	Documents []Document
	Stats     Stats
}

// Option is a functional option for configuring a [Combiner].
type Option func(*Combiner)

// WithPatterns sets the content-filter patterns.
func WithPatterns(patterns ...Pattern) Option {
	return func(c *Combiner) { c.patterns = slices.Clone(patterns) }
}

// WithDedup sets the deduplication strategy. Default: [DedupConsecutive].
func WithDedup(s DedupStrategy) Option {
	return func(c *Combiner) { c.dedup = s }
}

// WithChunking sets the requested number of parts and the minimum number of
// entries required before splitting. Defaults: 1 and 0.
func WithChunking(requested, minEntries int) Option {
	return func(c *Combiner) {
		c.chunks = requested
		c.minEntries = minEntries
	}
}

// WithRenderOptions sets the document layout options.
func WithRenderOptions(opts RenderOptions) Option {
	return func(c *Combiner) { c.render = opts }
}

// Combiner runs the merge → filter → dedupe → chunk → render chain.
type Combiner struct {
	patterns   []Pattern
	dedup      DedupStrategy
	chunks     int
	minEntries int
	render     RenderOptions
}

// NewCombiner constructs a [Combiner] with the supplied options.
func NewCombiner(opts ...Option) *Combiner {
	c := &Combiner{
		dedup:  DedupConsecutive,
		chunks: defaultChunks,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Combine merges the speakers of session and renders its documents.
//
// When nothing survives filtering and deduplication the returned Output
// still holds one header-only document and the error is an
// [*EmptySessionError]; callers should write the document and report the
// error rather than fail. Any other error means no output was produced.
func (c *Combiner) Combine(session string, inputs []SpeakerCues) (*Output, error) {
	if !c.dedup.IsValid() {
		return nil, fmt.Errorf("transcript: combine %q: unknown dedup strategy %q", session, c.dedup)
	}

	merged := Merge(inputs)
	stats := Stats{Speakers: len(inputs), Merged: len(merged.Entries)}

	filtered, dropped := Filter(merged.Entries, c.patterns)
	stats.Filtered = dropped

	deduped, err := Dedupe(filtered, c.dedup)
	if err != nil {
		return nil, fmt.Errorf("transcript: combine %q: %w", session, err)
	}
	stats.Deduplicated = len(filtered) - len(deduped)
	stats.Kept = len(deduped)

	chunks := Chunk(deduped, c.chunks, c.minEntries)
	out := &Output{
		Summary:   merged.Summary,
		Entries:   deduped,
		Chunks:    chunks,
		Documents: Render(merged.Summary, chunks, c.render),
		Stats:     stats,
	}
	if stats.Kept == 0 {
		return out, &EmptySessionError{Session: session, Stats: stats}
	}
	return out, nil
}
