package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MrWong99/scribe/pkg/audio"
)

// Source is one speaker's persisted artifacts inside a session directory.
type Source struct {
	// Name is matched against the configured speakers: the artifact
	// directory name, or the file stem for flat cue tracks.
	Name string

	// RawPath is the persisted ASR output; empty when absent.
	RawPath string

	// VTTPath is the cue track; empty when absent.
	VTTPath string
}

// Path returns the artifact the speaker's cues are loaded from.
func (s Source) Path() string {
	if s.RawPath != "" {
		return s.RawPath
	}
	return s.VTTPath
}

// DiscoverSources lists the speakers of the session stored in dir, sorted by
// name. Every sub-directory holding a raw result or cue track named after
// the directory is one speaker; so is every flat *.vtt file directly in dir.
func DiscoverSources(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("session: read %q: %w", dir, err)
	}
	var out []Source
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			sub := filepath.Join(dir, name)
			src := Source{Name: name}
			if fileExists(RawPath(sub, name)) {
				src.RawPath = RawPath(sub, name)
			}
			if fileExists(VTTPath(sub, name)) {
				src.VTTPath = VTTPath(sub, name)
			}
			if src.Path() != "" {
				out = append(out, src)
			}
			continue
		}
		if strings.EqualFold(filepath.Ext(name), VTTExt) {
			out = append(out, Source{Name: Stem(name), VTTPath: filepath.Join(dir, name)})
		}
	}
	slices.SortFunc(out, func(a, b Source) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// DiscoverAudio walks root and returns every supported recording, sorted.
// Intermediate conversion output is skipped.
func DiscoverAudio(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if audio.IsSupported(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: scan %q: %w", root, err)
	}
	slices.Sort(out)
	return out, nil
}

// DiscoverRaw walks root and returns every persisted raw result, sorted.
func DiscoverRaw(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), RawSuffix) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: scan %q: %w", root, err)
	}
	slices.Sort(out)
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
