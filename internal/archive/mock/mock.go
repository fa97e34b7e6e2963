// Package mock provides an in-memory test double for [archive.Store].
//
// Typical usage:
//
//	store := &mock.Store{}
//	// inject store into the system under test …
//	if got := store.CallCount("SaveRun"); got != 1 {
//	    t.Errorf("expected 1 SaveRun call, got %d", got)
//	}
package mock

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/scribe/internal/archive"
)

// Store is a configurable test double for [archive.Store]. Saved runs are
// kept in memory and served by Runs and a naive substring Search.
type Store struct {
	mu    sync.Mutex
	calls []string

	// SaveRunErr is returned by SaveRun when non-nil.
	SaveRunErr error

	// RunsErr is returned by Runs when non-nil.
	RunsErr error

	// SearchErr is returned by Search when non-nil.
	SearchErr error

	// Saved holds every successfully saved run in call order.
	Saved []archive.Run
}

// SaveRun implements [archive.Store].
func (s *Store) SaveRun(_ context.Context, run archive.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "SaveRun")
	if s.SaveRunErr != nil {
		return s.SaveRunErr
	}
	s.Saved = append(s.Saved, run)
	return nil
}

// Runs implements [archive.Store].
func (s *Store) Runs(_ context.Context, session string, limit int) ([]archive.RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "Runs")
	if s.RunsErr != nil {
		return nil, s.RunsErr
	}
	var out []archive.RunInfo
	for _, r := range slices.Backward(s.Saved) {
		if r.Session != session {
			continue
		}
		out = append(out, archive.RunInfo{
			ID: r.ID, Session: r.Session, Campaign: r.Campaign,
			CombinedAt: r.CombinedAt, Chunks: r.Chunks, Kept: r.Stats.Kept,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Search implements [archive.Store] with a case-insensitive substring match.
func (s *Store) Search(_ context.Context, query string, opts archive.SearchOpts) ([]archive.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "Search")
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	q := strings.ToLower(query)
	hits := []archive.Hit{}
	for _, r := range slices.Backward(s.Saved) {
		if opts.Session != "" && r.Session != opts.Session {
			continue
		}
		for i, e := range r.Entries {
			if opts.Speaker != "" && e.Speaker != opts.Speaker {
				continue
			}
			if !strings.Contains(strings.ToLower(e.Text), q) {
				continue
			}
			hits = append(hits, archive.Hit{
				RunID: r.ID, Session: r.Session, Seq: i, Label: e.Label,
				Speaker: e.Speaker, Start: e.Start, End: e.End, Text: e.Text,
			})
			if opts.Limit > 0 && len(hits) == opts.Limit {
				return hits, nil
			}
		}
	}
	return hits, nil
}

// CallCount returns the number of calls to method. Thread-safe.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == method {
			n++
		}
	}
	return n
}

var _ archive.Store = (*Store)(nil)
