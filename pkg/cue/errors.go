package cue

import "fmt"

// MalformedCueError describes a single persisted entry that could not be
// turned into a [Cue]. Decoders skip the offending entry, record the error and
// continue, so callers receive these as warnings rather than failures.
type MalformedCueError struct {
	// Source names the artifact the entry came from (file path, or a label
	// such as "raw" for in-memory ASR results).
	Source string

	// Line is the 1-based line of the timing line in a VTT track. Zero when
	// not applicable.
	Line int

	// Index is the 0-based position of the unit in a raw ASR result. -1 when
	// not applicable.
	Index int

	// Reason is a short human-readable description.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

func (e *MalformedCueError) Error() string {
	loc := e.Source
	switch {
	case e.Line > 0:
		loc = fmt.Sprintf("%s:%d", e.Source, e.Line)
	case e.Index >= 0:
		loc = fmt.Sprintf("%s[%d]", e.Source, e.Index)
	}
	if e.Err != nil {
		return fmt.Sprintf("cue: malformed entry at %s: %s: %v", loc, e.Reason, e.Err)
	}
	return fmt.Sprintf("cue: malformed entry at %s: %s", loc, e.Reason)
}

func (e *MalformedCueError) Unwrap() error { return e.Err }
