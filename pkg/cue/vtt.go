package cue

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Header is the signature line every WebVTT track starts with.
const Header = "WEBVTT"

// timingLine matches the cue timing line. Settings after the end timestamp
// (e.g. "align:start") are tolerated and ignored.
var timingLine = regexp.MustCompile(`^(\d{2,}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2,}:\d{2}:\d{2}\.\d{3})`)

// Encode writes cues as a WebVTT track. Cue text is whitespace-normalised so
// that each cue occupies exactly one text line; cues whose text is empty after
// normalisation are skipped since they could not be read back. Any other cue
// failing [Cue.Validate] aborts the encode.
func Encode(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n\n"); err != nil {
		return fmt.Errorf("cue: write header: %w", err)
	}
	for i, c := range cues {
		c.Text = Normalize(c.Text)
		if c.Text == "" {
			continue
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("cue: encode cue %d: %w", i, err)
		}
		if _, err := fmt.Fprintf(bw, "%s --> %s\n%s\n\n", FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text); err != nil {
			return fmt.Errorf("cue: write cue: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("cue: flush: %w", err)
	}
	return nil
}

// Decode reads a WebVTT track and returns its cues attributed to speaker, in
// file order.
//
// Text lines following a timing line up to the next blank line are joined with
// single spaces. Entries with an unparsable timing line, an end before the
// start, or no text are skipped and reported as [*MalformedCueError] values in
// the second return; the third return is non-nil only for read failures.
// Header, NOTE blocks and cue identifiers are ignored. source labels the
// warnings (typically the file path).
func Decode(r io.Reader, speaker, source string) ([]Cue, []*MalformedCueError, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cues     []Cue
		warnings []*MalformedCueError
		lines    []string
	)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("cue: read %s: %w", source, err)
	}

	malformed := func(line int, reason string, err error) {
		warnings = append(warnings, &MalformedCueError{Source: source, Line: line, Index: -1, Reason: reason, Err: err})
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || !strings.Contains(line, "-->") {
			continue
		}
		lineNo := i + 1

		// Collect the text block regardless of whether the timing parses so a
		// bad entry never leaks its text into the following one.
		var text []string
		for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
			i++
			text = append(text, strings.TrimSpace(lines[i]))
		}

		m := timingLine.FindStringSubmatch(line)
		if m == nil {
			malformed(lineNo, "unrecognised timing line", nil)
			continue
		}
		start, err := ParseTimestamp(m[1])
		if err != nil {
			malformed(lineNo, "bad start timestamp", err)
			continue
		}
		end, err := ParseTimestamp(m[2])
		if err != nil {
			malformed(lineNo, "bad end timestamp", err)
			continue
		}
		if end < start {
			malformed(lineNo, "end before start", ErrNegativeSpan)
			continue
		}
		content := Normalize(strings.Join(text, " "))
		if content == "" {
			malformed(lineNo, "no cue text", ErrEmptyText)
			continue
		}
		cues = append(cues, Cue{Speaker: speaker, Start: start, End: end, Text: content})
	}
	return cues, warnings, nil
}
