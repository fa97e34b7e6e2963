package cue

import (
	"encoding/json"
	"fmt"
	"io"
)

// RawResult is the persisted output of the ASR collaborator for one speaker.
// It is written once after inference and re-read whenever cues are
// regenerated with a different confidence threshold.
type RawResult struct {
	// AudioPath is the audio file the segments were transcribed from.
	AudioPath string `json:"audio_path"`

	// Segments are the ASR units in time order. Offsets are absolute within
	// the speaker's recording (VAD segment offsets already applied).
	Segments []RawSegment `json:"segments"`

	// MappingFile points to the persisted VAD interval map, if any.
	MappingFile string `json:"mapping_file,omitempty"`

	// Provider names the ASR backend that produced the segments.
	Provider string `json:"provider,omitempty"`

	// Language is the language hint used for inference.
	Language string `json:"language,omitempty"`
}

// RawSegment is one ASR response unit. Start and End are in seconds,
// Confidence in [0, 100].
type RawSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`

	missing []string
}

// Word is an optional word-level timing.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability,omitempty"`
}

// UnmarshalJSON records which of the required fields (start, end, text) were
// absent so that [RawSegment.Missing] can report malformed units. A missing
// confidence is not an error and decodes as zero.
func (s *RawSegment) UnmarshalJSON(data []byte) error {
	var aux struct {
		Start      *float64 `json:"start"`
		End        *float64 `json:"end"`
		Text       *string  `json:"text"`
		Confidence *float64 `json:"confidence"`
		Words      []Word   `json:"words"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = RawSegment{Words: aux.Words}
	if aux.Start != nil {
		s.Start = *aux.Start
	} else {
		s.missing = append(s.missing, "start")
	}
	if aux.End != nil {
		s.End = *aux.End
	} else {
		s.missing = append(s.missing, "end")
	}
	if aux.Text != nil {
		s.Text = *aux.Text
	} else {
		s.missing = append(s.missing, "text")
	}
	if aux.Confidence != nil {
		s.Confidence = *aux.Confidence
	}
	return nil
}

// Missing returns the names of required fields that were absent when the
// segment was decoded. Segments built in Go report none.
func (s RawSegment) Missing() []string { return s.missing }

// DecodeRaw reads a [RawResult] from JSON.
func DecodeRaw(r io.Reader) (*RawResult, error) {
	var res RawResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("cue: decode raw result: %w", err)
	}
	return &res, nil
}

// EncodeRaw writes res as indented JSON.
func EncodeRaw(w io.Writer, res *RawResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("cue: encode raw result: %w", err)
	}
	return nil
}

// ConfidenceFromLogProb converts a Whisper segment's average token
// log-probability into a 0-100 confidence score.
func ConfidenceFromLogProb(avgLogProb float64) float64 {
	return min(100, max(0, (1+avgLogProb)*100))
}
