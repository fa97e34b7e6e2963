package transcript

import (
	"fmt"
	"strings"

	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/pkg/cue"
)

// RenderOptions controls document layout.
type RenderOptions struct {
	// Campaign, when non-blank, is printed as "Campaign: <name>" above the
	// summary.
	Campaign string

	// IncludeTimestamps prefixes every line with "[start --> end] ".
	IncludeTimestamps bool
}

// Document is one rendered output part.
type Document struct {
	// Index is 1-based; Total is the number of documents in the set.
	Index int
	Total int

	// Entries is the number of transcript lines in the document.
	Entries int

	Text string
}

// Render turns the summary and chunks into documents.
//
// Each document consists of the optional campaign line, "Summary:" followed
// by one [speaker.Mapping.SummaryLine] per speaker, a blank line, a
// "FILE i of N" marker plus blank line when there is more than one chunk,
// "TRANSCRIPT:" and finally one "{label}: {text}" line per entry. Lines are
// joined with '\n' without a trailing newline.
func Render(summary []speaker.Mapping, chunks [][]Entry, opts RenderOptions) []Document {
	header := make([]string, 0, len(summary)+3)
	if c := strings.TrimSpace(opts.Campaign); c != "" {
		header = append(header, "Campaign: "+c, "")
	}
	header = append(header, "Summary:")
	for _, m := range summary {
		header = append(header, m.SummaryLine())
	}
	header = append(header, "")

	total := len(chunks)
	docs := make([]Document, 0, total)
	for i, chunk := range chunks {
		lines := make([]string, 0, len(header)+len(chunk)+3)
		lines = append(lines, header...)
		if total > 1 {
			lines = append(lines, fmt.Sprintf("FILE %d of %d", i+1, total), "")
		}
		lines = append(lines, "TRANSCRIPT:")
		for _, e := range chunk {
			lines = append(lines, FormatLine(e, opts.IncludeTimestamps))
		}
		docs = append(docs, Document{
			Index:   i + 1,
			Total:   total,
			Entries: len(chunk),
			Text:    strings.Join(lines, "\n"),
		})
	}
	return docs
}

// FormatLine renders a single transcript line.
func FormatLine(e Entry, timestamps bool) string {
	if timestamps {
		return fmt.Sprintf("[%s --> %s] %s: %s", cue.FormatTimestamp(e.Start), cue.FormatTimestamp(e.End), e.Label, e.Text)
	}
	return e.Label + ": " + e.Text
}
