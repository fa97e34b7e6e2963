// Package cue defines the canonical transcript unit shared by every stage of
// scribe, together with its text serialisations: the WebVTT cue track used for
// per-speaker persistence and the raw ASR result JSON that allows confidence
// filtering to be replayed without re-running inference.
//
// All times are [time.Duration] offsets from the start of the speaker's
// recording with millisecond precision, which is the precision of the VTT
// timestamp format. Values produced by [FromSeconds] are rounded to the
// nearest millisecond so that an [Encode]/[Decode] round trip is lossless.
package cue

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Cue is a timestamped line of transcribed text attributed to one speaker.
//
// Speaker holds the username of the speaker-mapping entry the cue belongs to;
// it is not part of the VTT encoding because cue tracks are stored one file per
// speaker.
type Cue struct {
	Speaker string
	Start   time.Duration
	End     time.Duration
	Text    string
}

var (
	// ErrEmptyText is returned by [Cue.Validate] when the cue text is empty
	// after trimming.
	ErrEmptyText = errors.New("cue: empty text")

	// ErrNegativeSpan is returned by [Cue.Validate] when End is before Start.
	ErrNegativeSpan = errors.New("cue: end before start")
)

// Validate reports whether c satisfies the cue invariants: Start <= End, no
// negative offsets, and non-empty text after trimming.
func (c Cue) Validate() error {
	if c.Start < 0 || c.End < 0 {
		return fmt.Errorf("cue: negative offset %s --> %s", FormatTimestamp(c.Start), FormatTimestamp(c.End))
	}
	if c.End < c.Start {
		return ErrNegativeSpan
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Duration returns End - Start.
func (c Cue) Duration() time.Duration { return c.End - c.Start }

// String renders c as "[start --> end] speaker: text" for logs and debugging.
func (c Cue) String() string {
	return fmt.Sprintf("[%s --> %s] %s: %s", FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Speaker, c.Text)
}

// Normalize trims text and collapses every run of whitespace, including line
// breaks, into a single space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// FromSeconds converts a floating point offset in seconds, as reported by ASR
// engines, into a millisecond-precise duration. NaN and negative inputs map to
// zero.
func FromSeconds(sec float64) time.Duration {
	if math.IsNaN(sec) || sec <= 0 {
		return 0
	}
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}

// Seconds converts d back into floating point seconds.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}
