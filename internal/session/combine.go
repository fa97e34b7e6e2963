package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/scribe/internal/archive"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/transcript"
	"github.com/MrWong99/scribe/pkg/cue"
)

// ErrNoSpeakers is returned when a session directory holds no speaker
// artifacts.
var ErrNoSpeakers = errors.New("session: no speaker artifacts found")

// Result describes one combined session.
type Result struct {
	Session string
	Dir     string

	// Files are the documents written, in order.
	Files []string

	Output   *transcript.Output
	Warnings []*cue.MalformedCueError

	// RunID identifies the archived run; zero when archiving is disabled.
	RunID uuid.UUID
}

// CombinerOption is a functional option for [NewCombiner].
type CombinerOption func(*Combiner)

// WithReplay loads speakers from their persisted raw results, re-applying
// the confidence filter with threshold, instead of reading their cue tracks.
func WithReplay(threshold float64) CombinerOption {
	return func(c *Combiner) {
		c.replay = true
		c.threshold = threshold
	}
}

// WithArchive stores every combined run in store under campaign.
func WithArchive(store archive.Store, campaign string) CombinerOption {
	return func(c *Combiner) {
		c.archive = store
		c.campaign = campaign
	}
}

// WithCombineMetrics overrides the metrics sink. Default:
// [observe.DefaultMetrics].
func WithCombineMetrics(m *observe.Metrics) CombinerOption {
	return func(c *Combiner) { c.metrics = m }
}

// Combiner combines the persisted speakers of a session directory into its
// final documents. It is safe for concurrent use across sessions.
type Combiner struct {
	resolver *speaker.Resolver
	engine   *transcript.Combiner

	replay    bool
	threshold float64
	archive   archive.Store
	campaign  string
	metrics   *observe.Metrics
}

// NewCombiner creates a [Combiner] resolving speakers with resolver and
// combining them with engine.
func NewCombiner(resolver *speaker.Resolver, engine *transcript.Combiner, opts ...CombinerOption) *Combiner {
	c := &Combiner{resolver: resolver, engine: engine}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Combine processes the session stored in dir; the session name is the
// directory's base name.
//
// Every speaker is resolved before any cue is loaded; a speaker that cannot
// be mapped fails the session with a [*speaker.MappingResolutionError] and
// nothing is written. Speakers are then loaded concurrently and combined once
// all of them are available. Documents are written only after the whole set
// was rendered, and documents of an earlier run with a different chunk count
// are removed.
//
// When nothing survives filtering the header-only document is still written
// and the returned error is a [*transcript.EmptySessionError] alongside a
// valid Result.
func (c *Combiner) Combine(ctx context.Context, dir string) (res *Result, err error) {
	session := filepath.Base(filepath.Clean(dir))
	ctx, span := observe.StartSpan(ctx, "session.combine", trace.WithAttributes(attribute.String("session", session)))
	start := time.Now()
	defer func() {
		status := "ok"
		var empty *transcript.EmptySessionError
		switch {
		case errors.As(err, &empty):
			status = "empty"
		case err != nil:
			status = "error"
		}
		c.metrics.RecordSession(ctx, status)
		c.metrics.CombineDuration.Record(ctx, time.Since(start).Seconds())
		observe.EndSpan(span, err)
	}()

	sources, err := DiscoverSources(dir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("session: combine %q: %w", session, ErrNoSpeakers)
	}

	mappings, err := c.resolve(sources)
	if err != nil {
		return nil, fmt.Errorf("session: combine %q: %w", session, err)
	}

	inputs, warnings, err := c.load(ctx, sources, mappings)
	if err != nil {
		return nil, fmt.Errorf("session: combine %q: %w", session, err)
	}

	out, combineErr := c.engine.Combine(session, inputs)
	var empty *transcript.EmptySessionError
	if combineErr != nil && !errors.As(combineErr, &empty) {
		return nil, fmt.Errorf("session: combine %q: %w", session, combineErr)
	}

	files, err := WriteDocuments(dir, session, out.Documents)
	if err != nil {
		return nil, err
	}

	c.metrics.RecordDropped(ctx, observe.StageFilter, out.Stats.Filtered)
	c.metrics.RecordDropped(ctx, observe.StageDedup, out.Stats.Deduplicated)
	c.metrics.CuesKept.Add(ctx, int64(out.Stats.Kept))

	res = &Result{
		Session:  session,
		Dir:      dir,
		Files:    files,
		Output:   out,
		Warnings: warnings,
	}
	if c.archive != nil {
		run := archive.NewRun(session, c.campaign, out)
		if err := c.archive.SaveRun(ctx, run); err != nil {
			observe.Logger(ctx).Warn("archiving combined session failed", "session", session, "err", err)
		} else {
			res.RunID = run.ID
		}
	}

	observe.Logger(ctx).Info("combined session",
		"session", session,
		"speakers", out.Stats.Speakers,
		"merged", out.Stats.Merged,
		"filtered", out.Stats.Filtered,
		"deduplicated", out.Stats.Deduplicated,
		"kept", out.Stats.Kept,
		"documents", len(files),
	)
	return res, combineErr
}

// resolve maps every source to a configured speaker. All failures are
// reported together.
func (c *Combiner) resolve(sources []Source) ([]speaker.Mapping, error) {
	mappings := make([]speaker.Mapping, len(sources))
	owner := make(map[string]string, len(sources))
	var errs []error
	for i, src := range sources {
		m, err := c.resolver.Resolve(src.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, ok := owner[m.Username]; ok {
			errs = append(errs, fmt.Errorf("%q and %q both resolve to speaker %q", prev, src.Name, m.Username))
			continue
		}
		owner[m.Username] = src.Name
		mappings[i] = m
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return mappings, nil
}

// load reads every speaker concurrently and returns once all are loaded.
func (c *Combiner) load(ctx context.Context, sources []Source, mappings []speaker.Mapping) ([]transcript.SpeakerCues, []*cue.MalformedCueError, error) {
	c.metrics.ActiveSpeakers.Add(ctx, int64(len(sources)))
	defer c.metrics.ActiveSpeakers.Add(ctx, -int64(len(sources)))

	inputs := make([]transcript.SpeakerCues, len(sources))
	warnings := make([][]*cue.MalformedCueError, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			cues, warns, err := c.loadSource(gctx, src, mappings[i].Username)
			if err != nil {
				return err
			}
			inputs[i] = transcript.SpeakerCues{Speaker: mappings[i], Cues: cues}
			warnings[i] = warns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return inputs, slices.Concat(warnings...), nil
}

func (c *Combiner) loadSource(ctx context.Context, src Source, username string) ([]cue.Cue, []*cue.MalformedCueError, error) {
	if src.RawPath != "" && (c.replay || src.VTTPath == "") {
		raw, err := LoadRaw(src.RawPath)
		if err != nil {
			return nil, nil, err
		}
		gen := generate(ctx, c.metrics, raw, username, c.threshold)
		return gen.Cues, gen.Warnings, nil
	}
	cues, warnings, err := ReadVTT(src.VTTPath, username)
	if err != nil {
		return nil, nil, err
	}
	c.metrics.RecordDropped(ctx, observe.StageMalformed, len(warnings))
	for _, w := range warnings {
		observe.Logger(ctx).Warn("skipping malformed cue", "err", w)
	}
	return cues, warnings, nil
}

// WriteDocuments writes docs for session into dir and removes combined
// documents of session left over from earlier runs. It returns the written
// paths in document order.
func WriteDocuments(dir, session string, docs []transcript.Document) ([]string, error) {
	files := make([]string, len(docs))
	for i, d := range docs {
		files[i] = CombinedPath(dir, session, d.Index, d.Total)
		if err := WriteFileAtomic(files[i], []byte(d.Text)); err != nil {
			return nil, err
		}
	}
	if err := removeStale(dir, session, files); err != nil {
		return files, err
	}
	return files, nil
}

func removeStale(dir, session string, keep []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("session: read %q: %w", dir, err)
	}
	prefix := session + CombinedSuffix
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, CombinedExt) {
			continue
		}
		middle := strings.TrimSuffix(strings.TrimPrefix(name, prefix), CombinedExt)
		if middle != "" && !isChunkIndex(middle) {
			continue
		}
		path := filepath.Join(dir, name)
		if slices.Contains(keep, path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("session: remove stale %q: %w", path, err)
		}
	}
	return nil
}

// isChunkIndex reports whether s has the form "-<digits>".
func isChunkIndex(s string) bool {
	digits, ok := strings.CutPrefix(s, "-")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
