package cue_test

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/scribe/pkg/cue"
)

// ─────────────────────────────────────────────────────────────────────────────
// fixtures
// ─────────────────────────────────────────────────────────────────────────────

const wellFormedVTT = `WEBVTT

00:00:00.000 --> 00:00:01.000
Roll for initiative.

00:00:03.000 --> 00:00:04.250
The goblin
   lunges   at you.

1
00:00:05.000 --> 00:00:06.000 align:start
Cue with an identifier.
`

const malformedVTT = `WEBVTT

00:00:00.000 --> 00:00:01.000
Good one.

00:00:0X.000 --> 00:00:02.000
Broken timing.

00:00:05.000 --> 00:00:04.000
Ends before it starts.

00:00:06.000 --> 00:00:07.000

00:61:00.000 --> 00:61:01.000
Minutes out of range.

00:00:08.000 --> 00:00:09.000
Still here.
`

// ─────────────────────────────────────────────────────────────────────────────
// Decode
// ─────────────────────────────────────────────────────────────────────────────

func TestDecode_WellFormed(t *testing.T) {
	t.Parallel()
	cues, warnings, err := cue.Decode(strings.NewReader(wellFormedVTT), "nilbits", "test.vtt")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	want := []cue.Cue{
		{Speaker: "nilbits", Start: 0, End: time.Second, Text: "Roll for initiative."},
		{Speaker: "nilbits", Start: 3 * time.Second, End: 4250 * time.Millisecond, Text: "The goblin lunges at you."},
		{Speaker: "nilbits", Start: 5 * time.Second, End: 6 * time.Second, Text: "Cue with an identifier."},
	}
	if !slices.Equal(cues, want) {
		t.Errorf("cues = %+v\nwant  %+v", cues, want)
	}
}

func TestDecode_SkipsMalformedEntries(t *testing.T) {
	t.Parallel()
	cues, warnings, err := cue.Decode(strings.NewReader(malformedVTT), "dm", "broken.vtt")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	texts := make([]string, len(cues))
	for i, c := range cues {
		texts[i] = c.Text
	}
	if !slices.Equal(texts, []string{"Good one.", "Still here."}) {
		t.Errorf("texts = %q", texts)
	}
	if len(warnings) != 4 {
		t.Fatalf("warnings = %d, want 4: %v", len(warnings), warnings)
	}
	if warnings[0].Line != 6 {
		t.Errorf("first warning line = %d, want 6", warnings[0].Line)
	}
	if !errors.Is(warnings[1], cue.ErrNegativeSpan) {
		t.Errorf("second warning = %v, want ErrNegativeSpan", warnings[1])
	}
	if !errors.Is(warnings[2], cue.ErrEmptyText) {
		t.Errorf("third warning = %v, want ErrEmptyText", warnings[2])
	}
	var mce *cue.MalformedCueError
	if !errors.As(error(warnings[3]), &mce) || !strings.Contains(mce.Error(), "broken.vtt:") {
		t.Errorf("fourth warning = %v, want location in message", warnings[3])
	}
}

func TestDecode_EmptyTrack(t *testing.T) {
	t.Parallel()
	cues, warnings, err := cue.Decode(strings.NewReader("WEBVTT\n"), "x", "empty.vtt")
	if err != nil || len(cues) != 0 || len(warnings) != 0 {
		t.Errorf("got cues=%v warnings=%v err=%v", cues, warnings, err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Encode
// ─────────────────────────────────────────────────────────────────────────────

func TestEncode_Format(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := cue.Encode(&buf, []cue.Cue{
		{Start: 1500 * time.Millisecond, End: 2 * time.Second, Text: "  Hello\nthere "},
		{Start: 3 * time.Second, End: 3 * time.Second, Text: "   "},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "WEBVTT\n\n00:00:01.500 --> 00:00:02.000\nHello there\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestEncode_RejectsInvalidCue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		c    cue.Cue
		want error
	}{
		{"end before start", cue.Cue{Start: 2 * time.Second, End: time.Second, Text: "x"}, cue.ErrNegativeSpan},
		{"negative offset", cue.Cue{Start: -time.Second, End: time.Second, Text: "x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			err := cue.Encode(&buf, []cue.Cue{{Start: 0, End: time.Second, Text: "ok"}, tt.c})
			if err == nil {
				t.Fatalf("expected error, got track %q", buf.String())
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()
	in := []cue.Cue{
		{Speaker: "a", Start: 0, End: 900 * time.Millisecond, Text: "First."},
		{Speaker: "a", Start: 900 * time.Millisecond, End: 2*time.Minute + 7*time.Millisecond, Text: "Second, longer line."},
		{Speaker: "a", Start: time.Hour, End: time.Hour + time.Second, Text: "Much later."},
		{Speaker: "a", Start: 100 * time.Hour, End: 100*time.Hour + 2*time.Second, Text: "Marathon session."},
	}
	var buf bytes.Buffer
	if err := cue.Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, warnings, err := cue.Decode(&buf, "a", "rt.vtt")
	if err != nil || len(warnings) != 0 {
		t.Fatalf("Decode: err=%v warnings=%v", err, warnings)
	}
	if !slices.Equal(in, out) {
		t.Errorf("round trip mismatch:\n in  %+v\n out %+v", in, out)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Cue
// ─────────────────────────────────────────────────────────────────────────────

func TestCueValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		c    cue.Cue
		want error
	}{
		{"ok", cue.Cue{Start: 0, End: time.Second, Text: "x"}, nil},
		{"zero length", cue.Cue{Start: time.Second, End: time.Second, Text: "x"}, nil},
		{"negative span", cue.Cue{Start: 2 * time.Second, End: time.Second, Text: "x"}, cue.ErrNegativeSpan},
		{"blank", cue.Cue{Text: " \t"}, cue.ErrEmptyText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
