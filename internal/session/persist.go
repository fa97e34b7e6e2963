package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/vad"
)

// IntervalMap is the persisted record of how a recording was segmented.
// Offsets are in seconds.
type IntervalMap struct {
	AudioPath  string           `json:"audio_path"`
	SampleRate int              `json:"sample_rate"`
	Duration   float64          `json:"duration"`
	Segments   []MappedInterval `json:"segments"`
}

// MappedInterval is one speech interval fed to the recogniser.
type MappedInterval struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewIntervalMap records intervals found in a recording of the given length.
func NewIntervalMap(audioPath string, sampleRate int, total float64, intervals []vad.Interval) IntervalMap {
	m := IntervalMap{
		AudioPath:  audioPath,
		SampleRate: sampleRate,
		Duration:   total,
		Segments:   make([]MappedInterval, len(intervals)),
	}
	for i, iv := range intervals {
		m.Segments[i] = MappedInterval{Index: i, Start: cue.Seconds(iv.Start), End: cue.Seconds(iv.End)}
	}
	return m
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("session: create %q: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("session: write %q: %w", path, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("session: write %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("session: write %q: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("session: write %q: %w", path, err)
	}
	return nil
}

// SaveRaw persists raw ASR output.
func SaveRaw(path string, raw *cue.RawResult) error {
	var buf bytes.Buffer
	if err := cue.EncodeRaw(&buf, raw); err != nil {
		return fmt.Errorf("session: encode %q: %w", path, err)
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// LoadRaw reads raw ASR output persisted by [SaveRaw].
func LoadRaw(path string) (*cue.RawResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: open %q: %w", path, err)
	}
	defer f.Close()
	raw, err := cue.DecodeRaw(f)
	if err != nil {
		return nil, fmt.Errorf("session: decode %q: %w", path, err)
	}
	return raw, nil
}

// SaveIntervals persists a segmentation record.
func SaveIntervals(path string, m IntervalMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode %q: %w", path, err)
	}
	return WriteFileAtomic(path, data)
}

// LoadIntervals reads a segmentation record persisted by [SaveIntervals].
func LoadIntervals(path string) (IntervalMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IntervalMap{}, fmt.Errorf("session: read %q: %w", path, err)
	}
	var m IntervalMap
	if err := json.Unmarshal(data, &m); err != nil {
		return IntervalMap{}, fmt.Errorf("session: decode %q: %w", path, err)
	}
	return m, nil
}

// WriteVTT writes cues as a cue track.
func WriteVTT(path string, cues []cue.Cue) error {
	var buf bytes.Buffer
	if err := cue.Encode(&buf, cues); err != nil {
		return fmt.Errorf("session: encode %q: %w", path, err)
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// ReadVTT reads a cue track and attributes its cues to speaker. Malformed
// entries are skipped and returned as warnings.
func ReadVTT(path, speaker string) ([]cue.Cue, []*cue.MalformedCueError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("session: open %q: %w", path, err)
	}
	defer f.Close()
	return cue.Decode(f, speaker, path)
}
