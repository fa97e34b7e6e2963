package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/scribe/internal/session"
	"github.com/MrWong99/scribe/internal/transcript"
)

// defaultJobs is the worker count when none is configured.
const defaultJobs = 2

// Transcriber turns one recording into persisted artifacts.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, progress func(session.Progress)) (*session.FileResult, error)
}

// SessionCombiner combines one session directory.
type SessionCombiner interface {
	Combine(ctx context.Context, dir string) (*session.Result, error)
}

// Mirror receives every board change, e.g. [*RedisBoard].
type Mirror interface {
	Publish(ctx context.Context, s Status) error
}

// Compile-time interface assertions.
var (
	_ Transcriber     = (*session.Transcriber)(nil)
	_ SessionCombiner = (*session.Combiner)(nil)
	_ Mirror          = (*RedisBoard)(nil)
)

// Outcome is the result of one session.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailed  Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
)

// FileResult is the outcome of one recording.
type FileResult struct {
	File    string
	Session string
	Result  *session.FileResult
	Err     error
}

// SessionResult is the outcome of one session.
type SessionResult struct {
	Session string
	Dir     string
	Outcome Outcome
	Result  *session.Result
	Err     error
}

// Detail is a one-line description for reports.
func (s SessionResult) Detail() string {
	switch {
	case s.Err != nil && s.Outcome != OutcomeEmpty:
		return s.Err.Error()
	case s.Result != nil:
		st := s.Result.Output.Stats
		return fmt.Sprintf("%d speakers, %d lines, %d document(s)", st.Speakers, st.Kept, len(s.Result.Files))
	}
	return ""
}

// Report aggregates a run. Every unit has an entry; none is dropped on
// failure.
type Report struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time
	Files    []FileResult
	Sessions []SessionResult
}

// FailedFiles counts recordings that could not be transcribed.
func (r *Report) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// FailedSessions counts sessions that were skipped or failed.
func (r *Report) FailedSessions() int {
	n := 0
	for _, s := range r.Sessions {
		if s.Outcome == OutcomeFailed || s.Outcome == OutcomeSkipped {
			n++
		}
	}
	return n
}

// OK reports whether every file and session succeeded. Empty sessions count
// as success.
func (r *Report) OK() bool {
	return r.FailedFiles() == 0 && r.FailedSessions() == 0
}

// Option is a functional option for [NewRunner].
type Option func(*Runner)

// WithJobs sets the number of concurrent workers. Default: 2.
func WithJobs(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.jobs = n
		}
	}
}

// WithMirror publishes every board change to m.
func WithMirror(m Mirror) Option {
	return func(r *Runner) { r.mirrors = append(r.mirrors, m) }
}

// WithLiveTable redraws the status table on w every interval while files are
// being transcribed.
func WithLiveTable(w io.Writer, interval time.Duration) Option {
	return func(r *Runner) {
		r.live = w
		r.interval = interval
	}
}

// WithRunID overrides the random run identifier.
func WithRunID(id uuid.UUID) Option {
	return func(r *Runner) { r.runID = id }
}

// Runner executes batch runs.
type Runner struct {
	transcriber Transcriber
	combiner    SessionCombiner
	layout      session.Layout

	jobs     int
	mirrors  []Mirror
	live     io.Writer
	interval time.Duration
	runID    uuid.UUID
	board    *Board
}

// NewRunner creates a [Runner].
func NewRunner(t Transcriber, c SessionCombiner, layout session.Layout, opts ...Option) *Runner {
	r := &Runner{
		transcriber: t,
		combiner:    c,
		layout:      layout,
		jobs:        defaultJobs,
		interval:    time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	if r.runID == uuid.Nil {
		r.runID = uuid.New()
	}
	r.board = NewBoard(r.runID)
	return r
}

// Board is the live status of the run.
func (r *Runner) Board() *Board { return r.board }

// Run transcribes files with the configured number of workers, then combines
// every session that had files in the run. A session is combined only when
// all of its files in the run were transcribed; otherwise it is skipped so
// that no transcript silently lacks a speaker.
//
// Run returns an error only when ctx is cancelled; unit failures are
// reported in the [Report].
func (r *Runner) Run(ctx context.Context, files []string) (*Report, error) {
	rep := &Report{RunID: r.runID, Started: time.Now()}
	log := slog.With("run_id", r.runID)

	for _, m := range r.mirrors {
		r.board.Subscribe(func(s Status) {
			if err := m.Publish(ctx, s); err != nil {
				log.Debug("batch: mirror publish failed", "file", s.File, "err", err)
			}
		})
	}
	for _, f := range files {
		r.board.Add(f, r.sessionName(f))
	}

	stopLive := r.startLive()
	rep.Files = r.transcribeAll(ctx, files)
	stopLive()

	if err := ctx.Err(); err != nil {
		rep.Finished = time.Now()
		return rep, err
	}

	rep.Sessions = r.combineAll(ctx, rep.Files)
	rep.Finished = time.Now()
	log.Info("batch finished",
		"files", len(rep.Files),
		"failed_files", rep.FailedFiles(),
		"sessions", len(rep.Sessions),
		"failed_sessions", rep.FailedSessions(),
		"elapsed", rep.Finished.Sub(rep.Started).Round(time.Millisecond),
	)
	return rep, ctx.Err()
}

func (r *Runner) sessionName(file string) string {
	return r.layout.SessionName(file)
}

func (r *Runner) transcribeAll(ctx context.Context, files []string) []FileResult {
	results := make([]FileResult, len(files))
	g := new(errgroup.Group)
	g.SetLimit(r.jobs)
	for i, f := range files {
		results[i] = FileResult{File: f, Session: r.sessionName(f)}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				r.board.Update(f, session.Progress{Stage: session.StageError}, err)
				return nil
			}
			res, err := r.transcriber.Transcribe(ctx, f, func(p session.Progress) {
				r.board.Update(f, p, nil)
			})
			if err != nil {
				slog.Warn("batch: transcription failed", "file", f, "err", err)
				r.board.Update(f, session.Progress{Stage: session.StageError}, err)
			}
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) combineAll(ctx context.Context, files []FileResult) []SessionResult {
	type sessionFiles struct {
		name   string
		failed int
	}
	var dirs []string
	sessions := make(map[string]*sessionFiles)
	for _, f := range files {
		dir := r.layout.SessionDir(f.File)
		sf, ok := sessions[dir]
		if !ok {
			sf = &sessionFiles{name: f.Session}
			sessions[dir] = sf
			dirs = append(dirs, dir)
		}
		if f.Err != nil {
			sf.failed++
		}
	}
	slices.Sort(dirs)

	results := make([]SessionResult, len(dirs))
	g := new(errgroup.Group)
	g.SetLimit(r.jobs)
	for i, dir := range dirs {
		sf := sessions[dir]
		name := sf.name
		results[i] = SessionResult{Session: name, Dir: dir}
		if sf.failed > 0 {
			results[i].Outcome = OutcomeSkipped
			results[i].Err = fmt.Errorf("batch: %d file(s) failed to transcribe", sf.failed)
			continue
		}
		g.Go(func() error {
			res, err := r.combiner.Combine(ctx, dir)
			results[i].Result = res
			results[i].Err = err
			var empty *transcript.EmptySessionError
			switch {
			case err == nil:
				results[i].Outcome = OutcomeOK
			case errors.As(err, &empty):
				results[i].Outcome = OutcomeEmpty
			default:
				results[i].Outcome = OutcomeFailed
				slog.Warn("batch: combine failed", "session", name, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// startLive redraws the table until the returned function is called, which
// draws it a final time.
func (r *Runner) startLive() func() {
	if r.live == nil {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		var drawn uint64
		for {
			select {
			case <-done:
				fmt.Fprintln(r.live, RenderStatus(r.board.Snapshot()))
				return
			case <-ticker.C:
				if v := r.board.Version(); v != drawn {
					drawn = v
					fmt.Fprintln(r.live, RenderStatus(r.board.Snapshot()))
					fmt.Fprintln(r.live)
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
