package transcript_test

import (
	"time"

	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/transcript"
	"github.com/MrWong99/scribe/pkg/cue"
)

func sec(s float64) time.Duration { return cue.FromSeconds(s) }

func mkCue(start, end float64, text string) cue.Cue {
	return cue.Cue{Start: sec(start), End: sec(end), Text: text}
}

func mkEntry(label, text string) transcript.Entry {
	return transcript.Entry{Cue: cue.Cue{Speaker: label, Text: text}, Label: label}
}

func texts(entries []transcript.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

var (
	alice = speaker.Mapping{Index: 1, Username: "alice", Player: "Alice", Character: "Aria", Description: "half-elf bard"}
	bob   = speaker.Mapping{Index: 2, Username: "bob", Player: "Bob", Character: "Brom", Description: "dwarf cleric"}
	dm    = speaker.Mapping{Index: 3, Username: "dm", Player: "Dana", Role: "DM"}
)
