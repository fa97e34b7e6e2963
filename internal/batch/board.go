// Package batch transcribes a tree of recordings with a bounded worker pool
// and combines every session it touched.
//
// Each file and each session is an isolated unit: a failure is recorded in
// the [Report] and never aborts the rest of the run. Live per-file progress
// is kept on a [Board], which can be rendered as a table, served over HTTP
// and mirrored into Redis.
package batch

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/scribe/internal/session"
)

// Status is the live state of one file.
type Status struct {
	File    string        `json:"file"`
	Session string        `json:"session"`
	Stage   session.Stage `json:"stage"`
	Done    int           `json:"done,omitempty"`
	Total   int           `json:"total,omitempty"`
	Error   string        `json:"error,omitempty"`
	Updated time.Time     `json:"updated"`
}

// Label renders the stage as shown in the status table, e.g.
// "transcribing 3/12".
func (s Status) Label() string {
	return session.Progress{Stage: s.Stage, Done: s.Done, Total: s.Total}.String()
}

// Finished reports whether the file reached a terminal stage.
func (s Status) Finished() bool {
	return s.Stage == session.StageDone || s.Stage == session.StageError
}

// Board holds the status of every file of a run. It is safe for concurrent
// use.
type Board struct {
	runID uuid.UUID

	mu        sync.Mutex
	order     []string
	rows      map[string]Status
	version   uint64
	listeners []func(Status)
}

// NewBoard creates an empty board for run runID.
func NewBoard(runID uuid.UUID) *Board {
	return &Board{runID: runID, rows: make(map[string]Status)}
}

// RunID identifies the run the board belongs to.
func (b *Board) RunID() uuid.UUID { return b.runID }

// Add registers file as waiting. Adding a known file resets it.
func (b *Board) Add(file, sessionName string) {
	b.apply(file, func(s *Status) {
		*s = Status{File: file, Session: sessionName, Stage: session.StageWaiting}
	})
}

// Update records progress of file. A non-nil err moves it to the error
// stage.
func (b *Board) Update(file string, p session.Progress, err error) {
	b.apply(file, func(s *Status) {
		s.Stage, s.Done, s.Total = p.Stage, p.Done, p.Total
		if err != nil {
			s.Stage = session.StageError
			s.Error = err.Error()
		}
	})
}

func (b *Board) apply(file string, mutate func(*Status)) {
	b.mu.Lock()
	s, ok := b.rows[file]
	if !ok {
		b.order = append(b.order, file)
	}
	s.File = file
	mutate(&s)
	s.Updated = time.Now().UTC()
	b.rows[file] = s
	b.version++
	listeners := b.listeners
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// Subscribe registers fn to be called after every change. fn runs on the
// updating goroutine and must not block.
func (b *Board) Subscribe(fn func(Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Snapshot returns all rows in insertion order.
func (b *Board) Snapshot() []Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Status, len(b.order))
	for i, f := range b.order {
		out[i] = b.rows[f]
	}
	return out
}

// Version increases with every change; renderers use it to skip redraws.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// boardView is the JSON document served on the status endpoint.
type boardView struct {
	RunID uuid.UUID `json:"run_id"`
	Files []Status  `json:"files"`
}

// View returns the board as a JSON-encodable value.
func (b *Board) View() any {
	return boardView{RunID: b.runID, Files: b.Snapshot()}
}
