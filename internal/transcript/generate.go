package transcript

import (
	"fmt"
	"strings"

	"github.com/MrWong99/scribe/pkg/cue"
)

// RawSource labels malformed-unit warnings raised by [Generate].
const RawSource = "raw"

// GenerateResult is the outcome of one [Generate] call.
type GenerateResult struct {
	// Cues are the accepted cues in input order.
	Cues []cue.Cue

	// BelowThreshold counts units dropped for low confidence.
	BelowThreshold int

	// Empty counts units dropped because their text was blank.
	Empty int

	// Warnings lists malformed units that were skipped.
	Warnings []*cue.MalformedCueError
}

// Generate converts one speaker's persisted ASR output into cues.
//
// Units are processed in input order: text is whitespace-normalised and
// dropped when empty; units with confidence below threshold are dropped unless
// threshold is 0, which disables filtering; everything else becomes a cue for
// username with millisecond-rounded offsets. Units missing start, end or text,
// or whose end precedes their start, are skipped and reported in
// [GenerateResult.Warnings]. The output is never re-sorted.
//
// Generate is pure: calling it again on the same raw result with a different
// threshold yields a new cue set without touching the ASR collaborator. For
// t1 < t2 the output for t2 is a subsequence of the output for t1.
func Generate(raw *cue.RawResult, username string, threshold float64) GenerateResult {
	var res GenerateResult
	if raw == nil {
		return res
	}
	source := RawSource
	if raw.AudioPath != "" {
		source = raw.AudioPath
	}
	for i, seg := range raw.Segments {
		if missing := seg.Missing(); len(missing) > 0 {
			res.Warnings = append(res.Warnings, &cue.MalformedCueError{
				Source: source,
				Index:  i,
				Reason: fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", ")),
			})
			continue
		}
		text := cue.Normalize(seg.Text)
		if text == "" {
			res.Empty++
			continue
		}
		if threshold > 0 && !(seg.Confidence >= threshold) {
			res.BelowThreshold++
			continue
		}
		c := cue.Cue{
			Speaker: username,
			Start:   cue.FromSeconds(seg.Start),
			End:     cue.FromSeconds(seg.End),
			Text:    text,
		}
		if c.End < c.Start {
			res.Warnings = append(res.Warnings, &cue.MalformedCueError{
				Source: source,
				Index:  i,
				Reason: "end before start",
				Err:    cue.ErrNegativeSpan,
			})
			continue
		}
		res.Cues = append(res.Cues, c)
	}
	return res
}
