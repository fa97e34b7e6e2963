package speaker

import (
	"fmt"
	"strings"
)

// MappingResolutionError reports an input artifact that matches no configured
// speaker. A session that raises it must not be combined, since its output
// would silently omit a participant.
type MappingResolutionError struct {
	// Name is the artifact name that failed to resolve.
	Name string

	// Configured lists the usernames available at the time.
	Configured []string

	// Suggestions lists configured usernames that resemble Name.
	Suggestions []string
}

func (e *MappingResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "speaker: no mapping for %q (configured usernames: %s)", e.Name, strings.Join(e.Configured, ", "))
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, "; did you mean %s?", strings.Join(e.Suggestions, " or "))
	}
	return b.String()
}
