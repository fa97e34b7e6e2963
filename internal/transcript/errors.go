package transcript

import "fmt"

// EmptySessionError reports a session in which no cue survived filtering and
// deduplication. It is informational: the combiner still produces a single
// header-only document alongside it.
type EmptySessionError struct {
	Session string
	Stats   Stats
}

func (e *EmptySessionError) Error() string {
	return fmt.Sprintf("transcript: session %q has no cues after filtering (merged %d, filtered %d, deduplicated %d)",
		e.Session, e.Stats.Merged, e.Stats.Filtered, e.Stats.Deduplicated)
}
