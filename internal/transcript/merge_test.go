package transcript_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/scribe/internal/transcript"
	"github.com/MrWong99/scribe/pkg/cue"
)

func TestMerge_InterleavesByStart(t *testing.T) {
	t.Parallel()
	got := transcript.Merge([]transcript.SpeakerCues{
		{Speaker: alice, Cues: []cue.Cue{mkCue(0, 1, "Hello"), mkCue(5, 6, "Bye")}},
		{Speaker: bob, Cues: []cue.Cue{mkCue(2, 3, "Hi")}},
	})

	want := []string{"Hello", "Hi", "Bye"}
	if !slices.Equal(texts(got.Entries), want) {
		t.Fatalf("texts = %v, want %v", texts(got.Entries), want)
	}
	labels := []string{got.Entries[0].Label, got.Entries[1].Label, got.Entries[2].Label}
	if !slices.Equal(labels, []string{"Aria", "Brom", "Aria"}) {
		t.Errorf("labels = %v", labels)
	}
	if got.Entries[1].Speaker != "bob" {
		t.Errorf("Entries[1].Speaker = %q, want bob", got.Entries[1].Speaker)
	}
}

func TestMerge_StableForEqualStarts(t *testing.T) {
	t.Parallel()
	// bob is listed first but alice has the lower mapping index.
	in := []transcript.SpeakerCues{
		{Speaker: bob, Cues: []cue.Cue{mkCue(1, 2, "b1"), mkCue(1, 3, "b2")}},
		{Speaker: alice, Cues: []cue.Cue{mkCue(1, 2, "a1")}},
	}
	first := transcript.Merge(in)
	want := []string{"a1", "b1", "b2"}
	if !slices.Equal(texts(first.Entries), want) {
		t.Fatalf("texts = %v, want %v", texts(first.Entries), want)
	}
	for range 5 {
		again := transcript.Merge(in)
		if !slices.Equal(texts(again.Entries), want) {
			t.Fatalf("merge not reproducible: %v", texts(again.Entries))
		}
	}
}

func TestMerge_SortsUnorderedSpeakerInput(t *testing.T) {
	t.Parallel()
	got := transcript.Merge([]transcript.SpeakerCues{
		{Speaker: alice, Cues: []cue.Cue{mkCue(9, 10, "late"), mkCue(1, 2, "early")}},
	})
	if !slices.Equal(texts(got.Entries), []string{"early", "late"}) {
		t.Errorf("texts = %v", texts(got.Entries))
	}
}

func TestMerge_OrderedAndComplete(t *testing.T) {
	t.Parallel()
	in := []transcript.SpeakerCues{
		{Speaker: alice, Cues: []cue.Cue{mkCue(0, 1, "a"), mkCue(3, 4, "b"), mkCue(7, 8, "c")}},
		{Speaker: bob, Cues: []cue.Cue{mkCue(1, 2, "d"), mkCue(3, 5, "e")}},
		{Speaker: dm, Cues: []cue.Cue{mkCue(0.5, 1, "f"), mkCue(10, 11, "g")}},
	}
	got := transcript.Merge(in)
	if len(got.Entries) != 7 {
		t.Fatalf("len = %d, want 7", len(got.Entries))
	}
	for i := 1; i < len(got.Entries); i++ {
		if got.Entries[i].Start < got.Entries[i-1].Start {
			t.Fatalf("entries out of order at %d: %v < %v", i, got.Entries[i].Start, got.Entries[i-1].Start)
		}
	}
}

func TestMerge_SummaryFirstAppearance(t *testing.T) {
	t.Parallel()
	got := transcript.Merge([]transcript.SpeakerCues{
		{Speaker: alice, Cues: []cue.Cue{mkCue(5, 6, "late")}},
		{Speaker: bob, Cues: []cue.Cue{mkCue(1, 2, "early")}},
		{Speaker: dm},
	})
	names := make([]string, len(got.Summary))
	for i, m := range got.Summary {
		names[i] = m.Username
	}
	if !slices.Equal(names, []string{"bob", "alice"}) {
		t.Errorf("summary = %v, want [bob alice]", names)
	}
}

func TestMerge_Empty(t *testing.T) {
	t.Parallel()
	got := transcript.Merge(nil)
	if len(got.Entries) != 0 || len(got.Summary) != 0 {
		t.Errorf("Merge(nil) = %+v, want empty", got)
	}
}
