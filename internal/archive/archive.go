// Package archive stores combined sessions for later search.
//
// Every successful combine produces a [Run]: the session name, a run ID, the
// pipeline counters and the kept entries with their speaker labels. The
// PostgreSQL implementation keeps runs in session_runs and entries in
// session_cues with a full-text index over the cue text.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/scribe/internal/transcript"
)

// Run is one archived combine of a session.
type Run struct {
	ID         uuid.UUID
	Session    string
	Campaign   string
	CombinedAt time.Time
	Chunks     int
	Stats      transcript.Stats

	// Entries are the kept entries in transcript order.
	Entries []transcript.Entry
}

// NewRun builds a Run with a fresh random ID from a combiner output.
func NewRun(session, campaign string, out *transcript.Output) Run {
	return Run{
		ID:         uuid.New(),
		Session:    session,
		Campaign:   campaign,
		CombinedAt: time.Now().UTC(),
		Chunks:     len(out.Documents),
		Stats:      out.Stats,
		Entries:    out.Entries,
	}
}

// RunInfo is a Run without its entries.
type RunInfo struct {
	ID         uuid.UUID
	Session    string
	Campaign   string
	CombinedAt time.Time
	Chunks     int
	Kept       int
}

// Hit is one cue matched by [Store.Search].
type Hit struct {
	RunID   uuid.UUID
	Session string
	Seq     int
	Label   string
	Speaker string
	Start   time.Duration
	End     time.Duration
	Text    string
}

// SearchOpts narrows a search.
type SearchOpts struct {
	// Session restricts matches to one session. Empty searches all.
	Session string

	// Speaker restricts matches to one username.
	Speaker string

	// Limit caps the number of hits. Zero means no limit.
	Limit int
}

// Store persists combined sessions. Implementations must be safe for
// concurrent use.
type Store interface {
	// SaveRun stores run and all of its entries atomically.
	SaveRun(ctx context.Context, run Run) error

	// Runs lists the runs of session, newest first. limit <= 0 lists all.
	Runs(ctx context.Context, session string, limit int) ([]RunInfo, error)

	// Search performs a full-text search over archived cue text.
	Search(ctx context.Context, query string, opts SearchOpts) ([]Hit, error)
}
