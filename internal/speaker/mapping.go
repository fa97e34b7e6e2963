// Package speaker maps per-speaker input artifacts (recording file stems,
// output sub-directories, cue track names) to the configured identity of the
// participant who produced them.
package speaker

import "strings"

// Mapping is one configured participant identity. The set of mappings for a
// session is keyed case-sensitively by Username and is read-only once loaded.
type Mapping struct {
	// Index is the 1-based configuration slot. It orders the speakers for
	// deterministic tie-breaking but carries no other meaning.
	Index int `yaml:"index"`

	// Username is the key matched against directory and file names.
	Username string `yaml:"username"`

	// Player is the participant's display name.
	Player string `yaml:"player"`

	// Role is free text such as "DM" or "Player".
	Role string `yaml:"role"`

	// Character is the in-game character name.
	Character string `yaml:"character"`

	// Description is a short character description for the summary header.
	Description string `yaml:"description"`
}

// Label is the name shown in front of each transcript line: the character if
// set, otherwise the player, otherwise the username.
func (m Mapping) Label() string {
	return firstNonBlank(m.Character, m.Player, m.Username)
}

// SummaryLine renders the identity for the document summary header as
// "player - character - description", substituting the username for any blank
// field.
func (m Mapping) SummaryLine() string {
	return firstNonBlank(m.Player, m.Username) + " - " +
		firstNonBlank(m.Character, m.Username) + " - " +
		firstNonBlank(m.Description, m.Username)
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
