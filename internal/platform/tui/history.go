package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vovakirdan/antcraft/internal/storage"
)

// History layout constants
const (
	minWidthForSidebar = 90 // Minimum width to show the stats sidebar
	sidebarWidth       = 22 // Width of stats sidebar
)

// HistoryKeyMap defines the key bindings for the match history.
type HistoryKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Quit}}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryModel is the Bubble Tea model for the match history screen.
type HistoryModel struct {
	matches     []storage.MatchRecord
	stats       *storage.Stats
	now         time.Time
	table       table.Model
	help        help.Model
	keys        HistoryKeyMap
	width       int
	height      int
	quitting    bool
	showSidebar bool
}

// NewHistoryModel creates a history view over already loaded records.
func NewHistoryModel(matches []storage.MatchRecord, stats *storage.Stats, width, height int) HistoryModel {
	h := help.New()
	h.ShowAll = false

	m := HistoryModel{
		matches:     matches,
		stats:       stats,
		now:         time.Now(),
		keys:        DefaultHistoryKeyMap(),
		help:        h,
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar && stats != nil,
	}
	m.table = m.createTable()
	m.updateTableRows()
	return m
}

// createTable creates a new table with appropriate columns.
func (m *HistoryModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "When", Width: 16},
		{Title: "Mode", Width: 6},
		{Title: "Opponent", Width: 14},
		{Title: "Result", Width: 8},
		{Title: "Reason", Width: 11},
		{Title: "Ticks", Width: 7},
		{Title: "Length", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 3)), // Leave room for header, help, and margins
	)

	// Table styles
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// HistoryRow formats one stored match as table cells.
func HistoryRow(r storage.MatchRecord, now time.Time) table.Row {
	opp := r.Opponent
	if opp == "" {
		opp = "-"
	}
	return table.Row{
		humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
		r.Mode,
		opp,
		ResultLabel(r),
		r.EndReason,
		humanize.Comma(int64(r.Ticks)),
		(time.Duration(r.Duration) * time.Second).String(),
	}
}

// ResultLabel is won, lost, draw or the reason an unfinished match ended.
func ResultLabel(r storage.MatchRecord) string {
	switch {
	case r.EndReason != "completed":
		return "aborted"
	case r.Won():
		return "won"
	case r.Winner < 0:
		return "draw"
	default:
		return "lost"
	}
}

// updateTableRows updates the table with the current records.
func (m *HistoryModel) updateTableRows() {
	rows := make([]table.Row, len(m.matches))
	for i, r := range m.matches {
		rows[i] = HistoryRow(r, m.now)
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history screen.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar && m.stats != nil
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	// Pass other messages to table
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		MarginBottom(1)
	b.WriteString(titleStyle.Render(centerText("MATCH HISTORY", m.width)))
	b.WriteString("\n\n")

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	tableRendered := tableStyle.Render(m.renderTableContent())

	if m.showSidebar {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), "  ", tableRendered))
	} else {
		b.WriteString(tableRendered)
	}

	// Help bar
	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderSidebar renders the aggregate record.
func (m HistoryModel) renderSidebar() string {
	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(sidebarWidth).
		Padding(0, 1)

	var sb strings.Builder
	sb.WriteString("Record\n")
	sb.WriteString(strings.Repeat("-", sidebarWidth-4))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "matches  %d\n", m.stats.Matches)
	fmt.Fprintf(&sb, "won      %d\n", m.stats.Wins)
	fmt.Fprintf(&sb, "lost     %d\n", m.stats.Losses)
	fmt.Fprintf(&sb, "drawn    %d\n", m.stats.Draws)
	fmt.Fprintf(&sb, "aborted  %d\n", m.stats.Aborted)
	fmt.Fprintf(&sb, "ticks    %s", humanize.Comma(m.stats.Ticks))
	return sidebarStyle.Render(sb.String())
}

// renderTableContent renders the table or empty message.
func (m HistoryModel) renderTableContent() string {
	if len(m.matches) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(2, 4)
		return emptyStyle.Render("No matches recorded yet.\nHost or join one to start!")
	}
	return m.table.View()
}

// centerText centers text within the given width.
func centerText(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", (width-w)/2) + text
}

// RunHistory runs the match history screen.
func RunHistory(matches []storage.MatchRecord, stats *storage.Stats, width, height int) error {
	p := tea.NewProgram(
		NewHistoryModel(matches, stats, width, height),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
