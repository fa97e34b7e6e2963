package asr

import (
	"encoding/json"
	"fmt"

	"github.com/MrWong99/scribe/pkg/cue"
)

// verboseResponse is the "verbose_json" transcription format shared by the
// OpenAI audio API and whisper-server.
type verboseResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []verboseSegment `json:"segments"`
	Words    []verboseWord    `json:"words"`
}

type verboseSegment struct {
	Start      float64       `json:"start"`
	End        float64       `json:"end"`
	Text       string        `json:"text"`
	AvgLogProb *float64      `json:"avg_logprob"`
	Words      []verboseWord `json:"words"`
}

type verboseWord struct {
	Word        string   `json:"word"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Probability *float64 `json:"probability"`
}

// ParseVerbose decodes a verbose_json response into raw segments. Segment
// confidence is derived from avg_logprob with [cue.ConfidenceFromLogProb];
// segments without it score 0. A response without segments but with text
// becomes a single segment spanning [0, 0].
func ParseVerbose(data []byte) ([]cue.RawSegment, string, error) {
	var resp verboseResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, "", fmt.Errorf("asr: parse verbose json: %w", err)
	}
	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil, resp.Language, nil
		}
		return []cue.RawSegment{{Text: resp.Text}}, resp.Language, nil
	}

	out := make([]cue.RawSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		seg := cue.RawSegment{Start: s.Start, End: s.End, Text: s.Text}
		if s.AvgLogProb != nil {
			seg.Confidence = cue.ConfidenceFromLogProb(*s.AvgLogProb)
		}
		for _, w := range s.Words {
			seg.Words = append(seg.Words, toWord(w))
		}
		out = append(out, seg)
	}
	// Top-level words are reported with timestamp_granularities=word.
	for _, w := range resp.Words {
		for i := range out {
			if w.Start >= out[i].Start && w.Start < out[i].End {
				out[i].Words = append(out[i].Words, toWord(w))
				break
			}
		}
	}
	return out, resp.Language, nil
}

func toWord(w verboseWord) cue.Word {
	cw := cue.Word{Word: w.Word, Start: w.Start, End: w.End}
	if w.Probability != nil {
		cw.Probability = *w.Probability
	}
	return cw
}

// Shift adds offset seconds to every timestamp in segs in place.
func Shift(segs []cue.RawSegment, offset float64) {
	for i := range segs {
		segs[i].Start += offset
		segs[i].End += offset
		for j := range segs[i].Words {
			segs[i].Words[j].Start += offset
			segs[i].Words[j].End += offset
		}
	}
}
