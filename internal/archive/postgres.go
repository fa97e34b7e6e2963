package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*Postgres)(nil)

// Postgres is the PostgreSQL-backed [Store]. All operations are safe for
// concurrent use.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at dsn, pings it and runs [Migrate].
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("archive: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Ping checks the connection. Used by the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (p *Postgres) Close() {
	p.pool.Close()
}

// SaveRun implements [Store]. The run row and its cues are written in one
// transaction; cues go through COPY.
func (p *Postgres) SaveRun(ctx context.Context, run Run) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive: save run: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
		INSERT INTO session_runs
		    (id, session, campaign, combined_at, chunks, speakers, merged, filtered, deduplicated, kept)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = tx.Exec(ctx, q,
		run.ID,
		run.Session,
		run.Campaign,
		run.CombinedAt,
		run.Chunks,
		run.Stats.Speakers,
		run.Stats.Merged,
		run.Stats.Filtered,
		run.Stats.Deduplicated,
		run.Stats.Kept,
	)
	if err != nil {
		return fmt.Errorf("archive: save run: insert run: %w", err)
	}

	if len(run.Entries) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"session_cues"},
			[]string{"run_id", "seq", "speaker", "label", "start_ms", "end_ms", "text"},
			pgx.CopyFromSlice(len(run.Entries), func(i int) ([]any, error) {
				e := run.Entries[i]
				return []any{run.ID, i, e.Speaker, e.Label, e.Start.Milliseconds(), e.End.Milliseconds(), e.Text}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("archive: save run: copy cues: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive: save run: commit: %w", err)
	}
	return nil
}

// Runs implements [Store].
func (p *Postgres) Runs(ctx context.Context, session string, limit int) ([]RunInfo, error) {
	q := `
		SELECT id, session, campaign, combined_at, chunks, kept
		FROM   session_runs
		WHERE  session = $1
		ORDER  BY combined_at DESC`
	args := []any{session}
	if limit > 0 {
		q += "\nLIMIT $2"
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: runs: %w", err)
	}
	infos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunInfo, error) {
		var ri RunInfo
		err := row.Scan(&ri.ID, &ri.Session, &ri.Campaign, &ri.CombinedAt, &ri.Chunks, &ri.Kept)
		return ri, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: runs: scan rows: %w", err)
	}
	return infos, nil
}

// Search implements [Store]. The query is passed to plainto_tsquery so no
// operator syntax is required.
func (p *Postgres) Search(ctx context.Context, query string, opts SearchOpts) ([]Hit, error) {
	args := []any{query}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{
		"to_tsvector('english', c.text) @@ plainto_tsquery('english', $1)",
	}
	if opts.Session != "" {
		conditions = append(conditions, "r.session = "+next(opts.Session))
	}
	if opts.Speaker != "" {
		conditions = append(conditions, "c.speaker = "+next(opts.Speaker))
	}

	q := "SELECT c.run_id, r.session, c.seq, c.label, c.speaker, c.start_ms, c.end_ms, c.text\n" +
		"FROM   session_cues c JOIN session_runs r ON r.id = c.run_id\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY r.combined_at DESC, c.seq"
	if opts.Limit > 0 {
		q += "\nLIMIT " + next(opts.Limit)
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: search: %w", err)
	}
	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Hit, error) {
		var (
			h              Hit
			startMS, endMS int64
		)
		if err := row.Scan(&h.RunID, &h.Session, &h.Seq, &h.Label, &h.Speaker, &startMS, &endMS, &h.Text); err != nil {
			return Hit{}, err
		}
		h.Start = time.Duration(startMS) * time.Millisecond
		h.End = time.Duration(endMS) * time.Millisecond
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive: search: scan rows: %w", err)
	}
	if hits == nil {
		hits = []Hit{}
	}
	return hits, nil
}
