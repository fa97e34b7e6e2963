package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	archivemock "github.com/MrWong99/scribe/internal/archive/mock"
	"github.com/MrWong99/scribe/internal/session"
	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/transcript"
	"github.com/MrWong99/scribe/pkg/cue"
)

func sec(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func seedTrack(t *testing.T, dir, stem string, cues ...cue.Cue) {
	t.Helper()
	if err := session.WriteVTT(session.VTTPath(filepath.Join(dir, stem), stem), cues); err != nil {
		t.Fatal(err)
	}
}

func mappings(t *testing.T) *speaker.Resolver {
	t.Helper()
	r, err := speaker.NewResolver([]speaker.Mapping{
		{Index: 1, Username: "gm_dave", Player: "Dave", Role: "DM", Character: "Narrator", Description: "Dungeon master"},
		{Index: 2, Username: "nilbits", Player: "Nils", Character: "Bramble", Description: "Halfling rogue"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCombine_MergesSpeakers(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "session-04")
	seedTrack(t, dir, "2-nilbits_16khz",
		cue.Cue{Start: sec(1.5), End: sec(2.5), Text: "I check for traps."},
	)
	seedTrack(t, dir, "1-gm_dave",
		cue.Cue{Start: 0, End: sec(1), Text: "You enter the crypt."},
		cue.Cue{Start: sec(3), End: sec(4), Text: "[BLANK_AUDIO]"},
		cue.Cue{Start: sec(5), End: sec(6), Text: "Roll a d20."},
	)

	store := &archivemock.Store{}
	engine := transcript.NewCombiner(
		transcript.WithPatterns(transcript.MustParsePattern("[BLANK_AUDIO]")),
		transcript.WithRenderOptions(transcript.RenderOptions{Campaign: "Curse of Strahd"}),
	)
	c := session.NewCombiner(mappings(t), engine, session.WithArchive(store, "Curse of Strahd"))

	res, err := c.Combine(context.Background(), dir)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if res.Session != "session-04" {
		t.Errorf("Session = %q", res.Session)
	}
	if len(res.Files) != 1 || res.Files[0] != filepath.Join(dir, "session-04-combined.txt") {
		t.Fatalf("Files = %v", res.Files)
	}

	want := strings.Join([]string{
		"Campaign: Curse of Strahd",
		"",
		"Summary:",
		"Dave - Narrator - Dungeon master",
		"Nils - Bramble - Halfling rogue",
		"",
		"TRANSCRIPT:",
		"Narrator: You enter the crypt.",
		"Bramble: I check for traps.",
		"Narrator: Roll a d20.",
	}, "\n")
	if got := readFile(t, res.Files[0]); got != want {
		t.Errorf("document:\n%s\nwant:\n%s", got, want)
	}
	if res.Output.Stats.Filtered != 1 || res.Output.Stats.Kept != 3 {
		t.Errorf("stats = %+v", res.Output.Stats)
	}

	if store.CallCount("SaveRun") != 1 {
		t.Fatalf("SaveRun calls = %d, want 1", store.CallCount("SaveRun"))
	}
	if res.RunID != store.Saved[0].ID || store.Saved[0].Campaign != "Curse of Strahd" {
		t.Errorf("archived run = %+v, RunID %v", store.Saved[0], res.RunID)
	}
}

func TestCombine_UnmappedSpeakerWritesNothing(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "s1")
	seedTrack(t, dir, "1-gm_dave", cue.Cue{Start: 0, End: sec(1), Text: "Hi."})
	seedTrack(t, dir, "unknownuser", cue.Cue{Start: 0, End: sec(1), Text: "Who am I?"})

	c := session.NewCombiner(mappings(t), transcript.NewCombiner())
	_, err := c.Combine(context.Background(), dir)

	var mre *speaker.MappingResolutionError
	if !errors.As(err, &mre) {
		t.Fatalf("err = %v, want MappingResolutionError", err)
	}
	if mre.Name != "unknownuser" {
		t.Errorf("Name = %q", mre.Name)
	}
	if _, statErr := os.Stat(session.CombinedPath(dir, "s1", 1, 1)); !os.IsNotExist(statErr) {
		t.Errorf("combined document written despite failure")
	}
}

func TestCombine_DuplicateSpeaker(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "s1")
	seedTrack(t, dir, "1-nilbits", cue.Cue{Start: 0, End: sec(1), Text: "a"})
	seedTrack(t, dir, "2-nilbits_48k", cue.Cue{Start: 0, End: sec(1), Text: "b"})

	c := session.NewCombiner(mappings(t), transcript.NewCombiner())
	if _, err := c.Combine(context.Background(), dir); err == nil {
		t.Fatal("expected error for two sources of one speaker")
	}
}

func TestCombine_NoSpeakers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := session.NewCombiner(mappings(t), transcript.NewCombiner())
	if _, err := c.Combine(context.Background(), dir); !errors.Is(err, session.ErrNoSpeakers) {
		t.Fatalf("err = %v, want ErrNoSpeakers", err)
	}
}

func TestCombine_EmptySessionStillWritten(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "s1")
	seedTrack(t, dir, "1-gm_dave", cue.Cue{Start: 0, End: sec(1), Text: "[AUDIO OUT]"})

	engine := transcript.NewCombiner(transcript.WithPatterns(transcript.MustParsePattern("[AUDIO OUT]")))
	c := session.NewCombiner(mappings(t), engine)
	res, err := c.Combine(context.Background(), dir)

	var empty *transcript.EmptySessionError
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want EmptySessionError", err)
	}
	if res == nil || len(res.Files) != 1 {
		t.Fatalf("res = %+v, want one header-only document", res)
	}
	if got := readFile(t, res.Files[0]); !strings.HasSuffix(got, "TRANSCRIPT:") {
		t.Errorf("document = %q, want header only", got)
	}
}

func TestCombine_ChunksAndRemovesStale(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "s1")
	var cues []cue.Cue
	for i := range 5 {
		cues = append(cues, cue.Cue{Start: sec(float64(i)), End: sec(float64(i) + 0.5), Text: string(rune('a' + i))})
	}
	seedTrack(t, dir, "1-gm_dave", cues...)
	touch(t, filepath.Join(dir, "s1-combined.txt"))
	touch(t, filepath.Join(dir, "s1-combined-4.txt"))
	touch(t, filepath.Join(dir, "s1-combined-notes.txt"))

	engine := transcript.NewCombiner(transcript.WithChunking(2, 0))
	c := session.NewCombiner(mappings(t), engine)
	res, err := c.Combine(context.Background(), dir)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	want := []string{filepath.Join(dir, "s1-combined-1.txt"), filepath.Join(dir, "s1-combined-2.txt")}
	if len(res.Files) != 2 || res.Files[0] != want[0] || res.Files[1] != want[1] {
		t.Fatalf("Files = %v, want %v", res.Files, want)
	}
	if !strings.Contains(readFile(t, want[0]), "FILE 1 of 2") {
		t.Error("first chunk lacks FILE marker")
	}
	for _, stale := range []string{"s1-combined.txt", "s1-combined-4.txt"} {
		if _, err := os.Stat(filepath.Join(dir, stale)); !os.IsNotExist(err) {
			t.Errorf("%s not removed", stale)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "s1-combined-notes.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestCombine_ReplayUsesThreshold(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "s1")
	seedRaw(t, dir, "1-gm_dave",
		cue.RawSegment{Start: 0, End: 1, Text: "clear", Confidence: 90},
		cue.RawSegment{Start: 1, End: 2, Text: "garbled", Confidence: 30},
	)
	// A stale track that replay must ignore.
	seedTrack(t, dir, "1-gm_dave", cue.Cue{Start: 0, End: sec(1), Text: "stale"})

	for _, tt := range []struct {
		name string
		opts []session.CombinerOption
		want int
	}{
		{"track", nil, 1},
		{"replay 50", []session.CombinerOption{session.WithReplay(50)}, 1},
		{"replay 0", []session.CombinerOption{session.WithReplay(0)}, 2},
	} {
		c := session.NewCombiner(mappings(t), transcript.NewCombiner(transcript.WithDedup(transcript.DedupNone)), tt.opts...)
		res, err := c.Combine(context.Background(), dir)
		if err != nil {
			t.Fatalf("%s: Combine: %v", tt.name, err)
		}
		if res.Output.Stats.Kept != tt.want {
			t.Errorf("%s: kept = %d, want %d", tt.name, res.Output.Stats.Kept, tt.want)
		}
		if tt.name == "track" && res.Output.Entries[0].Text != "stale" {
			t.Errorf("track mode read %q", res.Output.Entries[0].Text)
		}
	}
}

func TestCombine_Deterministic(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "s1")
	seedTrack(t, dir, "2-nilbits", cue.Cue{Start: sec(1), End: sec(2), Text: "same time"})
	seedTrack(t, dir, "1-gm_dave", cue.Cue{Start: sec(1), End: sec(2), Text: "same start"})

	c := session.NewCombiner(mappings(t), transcript.NewCombiner())
	first, err := c.Combine(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	a := readFile(t, first.Files[0])
	if _, err := c.Combine(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	if b := readFile(t, first.Files[0]); a != b {
		t.Errorf("output changed between runs:\n%s\n---\n%s", a, b)
	}
	if !strings.Contains(a, "Narrator: same start\nBramble: same time") {
		t.Errorf("tie not broken by speaker index:\n%s", a)
	}
}
