package batch

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/scribe/internal/session"
)

// Theme colours the status table.
type Theme struct {
	Header lipgloss.Color
	Active lipgloss.Color
	Done   lipgloss.Color
	Failed lipgloss.Color
	Dim    lipgloss.Color
}

// DefaultTheme is used by [RenderStatus] and [RenderReport].
var DefaultTheme = Theme{
	Header: lipgloss.Color("#00ff9f"),
	Active: lipgloss.Color("#e3b341"),
	Done:   lipgloss.Color("#3fb950"),
	Failed: lipgloss.Color("#f85149"),
	Dim:    lipgloss.Color("#6e7681"),
}

func (t Theme) stage(st session.Stage) lipgloss.Style {
	switch st {
	case session.StageDone:
		return lipgloss.NewStyle().Foreground(t.Done)
	case session.StageError:
		return lipgloss.NewStyle().Foreground(t.Failed)
	case session.StageWaiting:
		return lipgloss.NewStyle().Foreground(t.Dim)
	}
	return lipgloss.NewStyle().Foreground(t.Active)
}

func (t Theme) outcome(o Outcome) lipgloss.Style {
	switch o {
	case OutcomeOK:
		return lipgloss.NewStyle().Foreground(t.Done)
	case OutcomeFailed:
		return lipgloss.NewStyle().Foreground(t.Failed)
	}
	return lipgloss.NewStyle().Foreground(t.Active)
}

// RenderStatus renders the board rows as a table with one line per file.
func RenderStatus(rows []Status) string {
	t := DefaultTheme
	cells := make([][]cell, len(rows))
	for i, r := range rows {
		status := r.Label()
		if r.Error != "" {
			status += ": " + r.Error
		}
		cells[i] = []cell{
			{text: r.Session},
			{text: filepath.Base(r.File)},
			{text: status, style: t.stage(r.Stage)},
		}
	}
	return renderTable(t, []string{"SESSION", "FILE", "STATUS"}, cells)
}

// RenderReport renders the per-session outcome of a finished run.
func RenderReport(rep *Report) string {
	t := DefaultTheme
	cells := make([][]cell, len(rep.Sessions))
	for i, s := range rep.Sessions {
		detail := s.Detail()
		cells[i] = []cell{
			{text: s.Session},
			{text: string(s.Outcome), style: t.outcome(s.Outcome)},
			{text: detail},
		}
	}
	return renderTable(t, []string{"SESSION", "RESULT", "DETAIL"}, cells)
}

type cell struct {
	text  string
	style lipgloss.Style
}

func renderTable(t Theme, header []string, rows [][]cell) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c.text))
		}
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Header)
	rule := lipgloss.NewStyle().Foreground(t.Dim)

	var b strings.Builder
	for i, h := range header {
		b.WriteString(headerStyle.Render(pad(h, widths[i], i == len(header)-1)))
	}
	b.WriteByte('\n')
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	b.WriteString(rule.Render(strings.Repeat("─", total-2)))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, c := range row {
			b.WriteString(c.style.Render(pad(c.text, widths[i], i == len(row)-1)))
		}
	}
	return b.String()
}

// pad right-pads s to width plus a two-space gutter. The last column is not
// padded.
func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s)+2)
}
