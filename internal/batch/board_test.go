package batch_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/MrWong99/scribe/internal/batch"
	"github.com/MrWong99/scribe/internal/session"
)

func TestBoard_Lifecycle(t *testing.T) {
	t.Parallel()
	b := batch.NewBoard(uuid.New())
	b.Add("in/s1/alice.flac", "s1")
	b.Add("in/s1/bob.flac", "s1")

	b.Update("in/s1/alice.flac", session.Progress{Stage: session.StageTranscribing, Done: 3, Total: 12}, nil)
	b.Update("in/s1/bob.flac", session.Progress{Stage: session.StageConverting}, errors.New("ffmpeg exited 1"))

	rows := b.Snapshot()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].File != "in/s1/alice.flac" || rows[0].Session != "s1" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if got := rows[0].Label(); got != "transcribing 3/12" {
		t.Errorf("label = %q", got)
	}
	if rows[0].Finished() {
		t.Error("transcribing row reported finished")
	}
	if rows[1].Stage != session.StageError || rows[1].Error != "ffmpeg exited 1" || !rows[1].Finished() {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[1].Updated.IsZero() {
		t.Error("Updated not set")
	}
}

func TestBoard_SubscribeAndVersion(t *testing.T) {
	t.Parallel()
	b := batch.NewBoard(uuid.New())

	var (
		mu   sync.Mutex
		seen []string
	)
	b.Subscribe(func(s batch.Status) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Label())
	})

	v0 := b.Version()
	b.Add("a.wav", "s1")
	b.Update("a.wav", session.Progress{Stage: session.StageDone}, nil)
	if b.Version() != v0+2 {
		t.Errorf("version = %d, want %d", b.Version(), v0+2)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "waiting" || seen[1] != "done" {
		t.Errorf("seen = %v", seen)
	}
}

func TestBoard_View(t *testing.T) {
	t.Parallel()
	id := uuid.MustParse("6f1c1a3e-8a2b-4b7e-9f55-0d7c2c0f1a11")
	b := batch.NewBoard(id)
	b.Add("a.wav", "s1")

	data, err := json.Marshal(b.View())
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		RunID string         `json:"run_id"`
		Files []batch.Status `json:"files"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != id.String() || len(got.Files) != 1 || got.Files[0].Stage != session.StageWaiting {
		t.Errorf("view = %s", data)
	}
}
