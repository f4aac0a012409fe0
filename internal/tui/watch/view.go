package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattjoyce/hookgate/internal/deliverylog"
)

func renderHeader(m Model, width int) string {
	innerWidth := width - 4

	titleText := fmt.Sprintf(" HOOKGATE WATCH %s", m.spinner.View())
	clock := m.theme.Dim.Render(time.Now().Format("15:04:05"))

	pad := innerWidth - lipgloss.Width(titleText) - lipgloss.Width(clock) - 4
	if pad < 1 {
		pad = 1
	}
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	counts := make(map[Disposition]int)
	for _, s := range m.deliveries {
		counts[ClassifyNote(s.LastNote)]++
	}
	statsLine := fmt.Sprintf(" Shown: %d  %s %d  %s %d  %s %d",
		len(m.deliveries),
		m.theme.Forwarded.Render("forwarded"), counts[DispositionForwarded],
		m.theme.Suppressed.Render("suppressed"), counts[DispositionSuppressed],
		m.theme.Failed.Render("failed"), counts[DispositionFailed],
	)

	lastSeen := "none since start"
	if !m.pulse.LastSeen().IsZero() {
		lastSeen = fmt.Sprintf("%s ago", time.Since(m.pulse.LastSeen()).Round(time.Second))
	}
	activityLine := fmt.Sprintf(" New delivery: %s %s", lastSeen, m.pulse.Render(m.theme))

	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, statsLine, activityLine)
	return m.theme.Border.Width(innerWidth).Render(content)
}

func renderDetail(rec *deliverylog.Record, theme Theme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", theme.Highlight.Render("Received:"), rec.ReceivedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s %d bytes\n\n", theme.Highlight.Render("Size:"), len(rec.Body))

	b.WriteString(theme.Highlight.Render("Headers:") + "\n")
	for _, line := range strings.Split(strings.TrimSpace(deliverylog.DumpHeaders(rec.Header)), "\n") {
		if line != "" {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	b.WriteString("\n" + theme.Highlight.Render("Notes:") + "\n")
	for _, n := range rec.Notes {
		style := theme.Style(ClassifyNote(n.Line))
		fmt.Fprintf(&b, "  %s  %s\n", theme.Dim.Render(n.At.Local().Format("15:04:05")), style.Render(n.Line))
	}
	return b.String()
}
