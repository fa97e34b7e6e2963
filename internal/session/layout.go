// Package session runs the file-level pipeline around the transcript engine:
// per-speaker transcription into persisted artifacts, replay of the
// confidence filter over those artifacts, and combination of a whole session
// into its final documents.
//
// Output layout for an input file input/<session>/<stem>.<ext>:
//
//	output/<session>/<stem>/<stem>_transcription.json  raw ASR segments
//	output/<session>/<stem>/<stem>_mapping.json        VAD intervals
//	output/<session>/<stem>/<stem>.vtt                 filtered cue track
//	output/<session>/<session>-combined.txt            combined transcript
//	output/<session>/<session>-combined-<i>.txt        one per chunk when split
//
// All artifacts are written atomically (temp file plus rename), so an aborted
// run never leaves a partial document behind.
package session

import (
	"fmt"
	"path/filepath"
	"strings"
)

// File name suffixes of the persisted artifacts.
const (
	RawSuffix      = "_transcription.json"
	MappingSuffix  = "_mapping.json"
	VTTExt         = ".vtt"
	CombinedSuffix = "-combined"
	CombinedExt    = ".txt"
)

// Layout maps input recordings to their artifact directories.
type Layout struct {
	InputDir  string
	OutputDir string
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ArtifactDir returns the directory holding the artifacts of audioPath. The
// tree below InputDir is mirrored under OutputDir; files outside InputDir
// are placed under their parent directory's name.
func (l Layout) ArtifactDir(audioPath string) string {
	return filepath.Join(l.OutputDir, l.relDir(audioPath), Stem(audioPath))
}

// SessionDir returns the output directory of the session audioPath belongs
// to.
func (l Layout) SessionDir(audioPath string) string {
	return filepath.Join(l.OutputDir, l.relDir(audioPath))
}

// SessionName returns the name of the session audioPath belongs to.
func (l Layout) SessionName(audioPath string) string {
	return filepath.Base(l.SessionDir(audioPath))
}

func (l Layout) relDir(audioPath string) string {
	dir := filepath.Dir(audioPath)
	if l.InputDir != "" {
		if rel, err := filepath.Rel(l.InputDir, dir); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.Base(dir)
}

// RawPath is the persisted ASR output of stem inside dir.
func RawPath(dir, stem string) string { return filepath.Join(dir, stem+RawSuffix) }

// MappingPath is the persisted VAD interval map of stem inside dir.
func MappingPath(dir, stem string) string { return filepath.Join(dir, stem+MappingSuffix) }

// VTTPath is the cue track of stem inside dir.
func VTTPath(dir, stem string) string { return filepath.Join(dir, stem+VTTExt) }

// CombinedPath returns the path of document index (1-based) out of total for
// session inside dir. A single document carries no index.
func CombinedPath(dir, session string, index, total int) string {
	if total <= 1 {
		return filepath.Join(dir, session+CombinedSuffix+CombinedExt)
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s-%d%s", session, CombinedSuffix, index, CombinedExt))
}
