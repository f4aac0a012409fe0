// Package watch implements the hookgate delivery watch TUI: a live view of
// the delivery log, polled from the configured store.
package watch

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme centralizes all styling for the watch TUI.
type Theme struct {
	Forwarded  lipgloss.Style
	Suppressed lipgloss.Style
	Failed     lipgloss.Style
	Pending    lipgloss.Style

	Border    lipgloss.Style
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	PulseActive   lipgloss.Style
	PulseInactive lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		Forwarded:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Suppressed: lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
		Failed:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Pending:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),

		PulseActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		PulseInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}

// Disposition buckets a delivery by its last note.
type Disposition int

const (
	DispositionPending Disposition = iota
	DispositionForwarded
	DispositionSuppressed
	DispositionFailed
)

// ClassifyNote maps a note line written by the gateway to a disposition.
func ClassifyNote(line string) Disposition {
	switch {
	case strings.HasPrefix(line, "forwarded:"), strings.HasPrefix(line, "accepted:"):
		return DispositionForwarded
	case strings.HasPrefix(line, "suppressed:"):
		return DispositionSuppressed
	case strings.HasPrefix(line, "forward failed:"), strings.HasPrefix(line, "rejected:"):
		return DispositionFailed
	default:
		return DispositionPending
	}
}

// Label is the short table label for d.
func (t Theme) Label(d Disposition) string {
	switch d {
	case DispositionForwarded:
		return "OK"
	case DispositionSuppressed:
		return "SUP"
	case DispositionFailed:
		return "ERR"
	default:
		return "..."
	}
}

// Style is the color used for d.
func (t Theme) Style(d Disposition) lipgloss.Style {
	switch d {
	case DispositionForwarded:
		return t.Forwarded
	case DispositionSuppressed:
		return t.Suppressed
	case DispositionFailed:
		return t.Failed
	default:
		return t.Pending
	}
}
