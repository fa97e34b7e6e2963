package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessionRuns = `
CREATE TABLE IF NOT EXISTS session_runs (
    id            UUID         PRIMARY KEY,
    session       TEXT         NOT NULL,
    campaign      TEXT         NOT NULL DEFAULT '',
    combined_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    chunks        INT          NOT NULL,
    speakers      INT          NOT NULL,
    merged        INT          NOT NULL,
    filtered      INT          NOT NULL,
    deduplicated  INT          NOT NULL,
    kept          INT          NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_runs_session
    ON session_runs (session, combined_at DESC);
`

const ddlSessionCues = `
CREATE TABLE IF NOT EXISTS session_cues (
    run_id    UUID    NOT NULL REFERENCES session_runs (id) ON DELETE CASCADE,
    seq       INT     NOT NULL,
    speaker   TEXT    NOT NULL,
    label     TEXT    NOT NULL,
    start_ms  BIGINT  NOT NULL,
    end_ms    BIGINT  NOT NULL,
    text      TEXT    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_session_cues_speaker
    ON session_cues (speaker);

CREATE INDEX IF NOT EXISTS idx_session_cues_fts
    ON session_cues USING GIN (to_tsvector('english', text));
`

// Migrate creates the archive tables and indexes if they do not exist. It is
// idempotent and runs on every [NewPostgres].
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlSessionRuns, ddlSessionCues} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("archive migrate: %w", err)
		}
	}
	return nil
}
