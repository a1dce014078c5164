// Package watch implements the "remake watch" terminal UI: a live view
// of recent build runs recorded in the build history journal.
package watch

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/remake/internal/journal"
)

// Theme centralizes the TUI's styling.
type Theme struct {
	StatusOK     lipgloss.Style
	StatusFailed lipgloss.Style
	Title        lipgloss.Style
	Dim          lipgloss.Style
	Border       lipgloss.Style
}

// NewDefaultTheme returns the watch TUI's default color scheme.
func NewDefaultTheme() Theme {
	return Theme{
		StatusOK:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		StatusFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Title: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")),
	}
}

func newRunTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Started", Width: 19},
			{Title: "Jobs", Width: 4},
			{Title: "Targets", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
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
	return t
}

type runsMsg []journal.RunSummary
type tickMsg time.Time

// Model polls the build history journal and renders its most recent
// runs, refreshed once per tick.
type Model struct {
	jrn   *journal.Journal
	theme Theme
	table table.Model
	width int
}

// New creates a watch TUI model backed by jrn.
func New(jrn *journal.Journal) Model {
	return Model{jrn: jrn, theme: NewDefaultTheme(), table: newRunTable()}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }))
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		runs, err := m.jrn.RecentRuns(context.Background(), 20)
		if err != nil {
			return runsMsg(nil)
		}
		return runsMsg(runs)
	}
}

func (m Model) rowsFor(runs []journal.RunSummary) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		sym := m.theme.StatusOK.Render("●")
		if r.Failed {
			sym = m.theme.StatusFailed.Render("∅")
		}
		rows = append(rows, table.Row{
			sym,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.JobCount),
			r.Targets,
		})
	}
	return rows
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width - 4)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.fetch(), tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }))
	case runsMsg:
		m.table.SetRows(m.rowsFor(msg))
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("remake watch"),
		m.table.View(),
	)
	if len(m.table.Rows()) == 0 {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.theme.Dim.Render("no runs recorded yet"))
	}
	frame := m.theme.Border.Render(body)
	return frame + "\n" + m.theme.Dim.Render("press q to quit")
}
