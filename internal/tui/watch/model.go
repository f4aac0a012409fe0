package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattjoyce/hookgate/internal/deliverylog"
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	source   Source
	interval time.Duration
	limit    int

	width  int
	height int

	deliveries []deliverylog.Summary
	seen       map[string]bool
	loaded     bool
	lastPoll   time.Time

	table      table.Model
	detail     viewport.Model
	showDetail bool
	detailID   string
	spinner    spinner.Model
	pulse      Pulse
	theme      Theme

	lastError string
}

// New creates a watch model polling source every interval for the newest
// limit deliveries.
func New(source Source, interval time.Duration, limit int) Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if limit <= 0 {
		limit = 50
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 3},
			{Title: "Delivery", Width: 36},
			{Title: "Received", Width: 8},
			{Title: "Size", Width: 8},
			{Title: "Last note", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return Model{
		source:   source,
		interval: interval,
		limit:    limit,
		seen:     make(map[string]bool),
		table:    t,
		detail:   viewport.New(80, 10),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:    NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchDeliveries(m.source, m.limit),
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.showDetail = false
			return m, nil
		case "enter":
			if m.showDetail {
				return m, nil
			}
			if row := m.table.SelectedRow(); len(row) > 1 {
				return m, fetchDetail(m.source, row[1])
			}
			return m, nil
		case "r":
			return m, fetchDeliveries(m.source, m.limit)
		}
		if m.showDetail {
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(m.width - 6)
		m.table.SetHeight(max(m.height-12, 3))
		m.detail.Width = m.width - 6
		m.detail.Height = max(m.height-12, 3)
		return m, nil

	case deliveriesMsg:
		m.applyDeliveries(msg.summaries, msg.at)
		return m, schedulePoll(m.interval)

	case pollMsg:
		return m, fetchDeliveries(m.source, m.limit)

	case detailMsg:
		m.detailID = msg.record.ID
		m.detail.SetContent(renderDetail(msg.record, m.theme))
		m.detail.GotoTop()
		m.showDetail = true
		m.lastError = ""
		return m, nil

	case errMsg:
		m.lastError = msg.Error()
		return m, schedulePoll(m.interval)

	case spinner.TickMsg:
		m.pulse.Decay(time.Now())
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// applyDeliveries replaces the table contents. IDs not seen before light
// the pulse, except on the first load.
func (m *Model) applyDeliveries(summaries []deliverylog.Summary, at time.Time) {
	fresh := 0
	for _, s := range summaries {
		if !m.seen[s.ID] {
			m.seen[s.ID] = true
			fresh++
		}
	}
	if m.loaded && fresh > 0 {
		m.pulse.Hit(at)
	}
	m.loaded = true
	m.deliveries = summaries
	m.lastPoll = at
	m.lastError = ""
	m.table.SetRows(m.rows())
}

func (m Model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.deliveries))
	for _, s := range m.deliveries {
		rows = append(rows, table.Row{
			m.theme.Label(ClassifyNote(s.LastNote)),
			s.ID,
			s.ReceivedAt.Local().Format("15:04:05"),
			fmt.Sprintf("%d", s.Size),
			s.LastNote,
		})
	}
	return rows
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading deliveries..."
	}

	header := renderHeader(m, m.width)

	var body string
	if m.showDetail {
		title := m.theme.Title.Render("Delivery " + m.detailID)
		body = m.theme.Border.Width(m.width - 4).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, m.detail.View()))
	} else {
		body = m.theme.Border.Width(m.width - 4).Render(m.table.View())
	}

	parts := []string{header, body}
	if m.lastError != "" {
		parts = append(parts, m.theme.Failed.Render(fmt.Sprintf(" ! %s", m.lastError)))
	}

	help := " [q] Quit • [↑/↓] Navigate • [enter] Details • [r] Refresh"
	if m.showDetail {
		help = " [q] Quit • [↑/↓] Scroll • [esc] Back"
	}
	parts = append(parts, m.theme.Dim.Render(help))

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
