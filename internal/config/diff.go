package config

import (
	"slices"

	"github.com/MrWong99/scribe/internal/speaker"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	CombineChanged  bool // any combine.* setting changed
	SpeakersChanged bool // true if any speaker was added, removed or edited
	SpeakerChanges  []SpeakerDiff
	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// Changed reports whether a combined transcript should be regenerated.
func (d ConfigDiff) Changed() bool {
	return d.CombineChanged || d.SpeakersChanged
}

// SpeakerDiff describes what changed for a single speaker, keyed by username.
type SpeakerDiff struct {
	Username        string
	IndexChanged    bool
	IdentityChanged bool // player, role, character or description
	Added           bool
	Removed         bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.CombineChanged = !combineEqual(old.Combine, new.Combine)

	oldSpk := make(map[string]speaker.Mapping, len(old.Speakers))
	for _, m := range old.Speakers {
		oldSpk[m.Username] = m
	}
	newSpk := make(map[string]speaker.Mapping, len(new.Speakers))
	for _, m := range new.Speakers {
		newSpk[m.Username] = m
	}

	// Modified and removed speakers, in old config order.
	for _, o := range old.Speakers {
		n, exists := newSpk[o.Username]
		if !exists {
			d.SpeakerChanges = append(d.SpeakerChanges, SpeakerDiff{Username: o.Username, Removed: true})
			continue
		}
		sd := SpeakerDiff{
			Username:     o.Username,
			IndexChanged: o.Index != n.Index,
			IdentityChanged: o.Player != n.Player || o.Role != n.Role ||
				o.Character != n.Character || o.Description != n.Description,
		}
		if sd.IndexChanged || sd.IdentityChanged {
			d.SpeakerChanges = append(d.SpeakerChanges, sd)
		}
	}

	// Added speakers, in new config order.
	for _, n := range new.Speakers {
		if _, exists := oldSpk[n.Username]; !exists {
			d.SpeakerChanges = append(d.SpeakerChanges, SpeakerDiff{Username: n.Username, Added: true})
		}
	}

	d.SpeakersChanged = len(d.SpeakerChanges) > 0
	return d
}

func combineEqual(a, b CombineConfig) bool {
	return a.Threshold() == b.Threshold() &&
		a.Dedup == b.Dedup &&
		slices.Equal(a.SkipFilters, b.SkipFilters) &&
		a.IncludeTimestamps == b.IncludeTimestamps &&
		a.Chunks == b.Chunks &&
		a.MinEntriesPerChunk == b.MinEntriesPerChunk &&
		a.Campaign == b.Campaign
}
