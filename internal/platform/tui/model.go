package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/antcraft/internal/multiplayer"
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

// Layout constants
const (
	hudLines    = 1
	footerLines = 3 // status, notice and help
	noticeTTL   = 3 * time.Second
	refreshRate = 4 // TickMsg per second
)

// Sender delivers messages to the match coordinator.
type Sender interface {
	Send(msg multiplayer.CoordinatorMessage)
}

// MatchModelConfig wires a match view to its event stream.
type MatchModelConfig struct {
	SessionID multiplayer.SessionID
	MatchID   multiplayer.MatchID
	Events    <-chan multiplayer.SessionEvent
	// Coordinator receives issued commands. A nil coordinator or ReadOnly
	// makes the view a spectator.
	Coordinator Sender
	ReadOnly    bool
	TickRate    int
	Width       int
	Height      int
}

// MatchModel is the Bubble Tea model of a running match. It only renders the
// views it receives and turns keys into commands; the simulation runs in the
// match goroutine.
type MatchModel struct {
	cfg      MatchModelConfig
	keys     MatchKeyMap
	help     help.Model
	spinner  spinner.Model
	ctl      Controls
	view     sim.View
	hasView  bool
	centered bool
	status   netcode.Status
	opponent string
	ended    *multiplayer.MatchEndedEvent
	notice   string
	noticeAt time.Time
	width    int
	height   int
	quitting bool
}

// NewMatchModel creates a match view.
func NewMatchModel(cfg MatchModelConfig) MatchModel {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 10
	}
	if cfg.Coordinator == nil {
		cfg.ReadOnly = true
	}
	h := help.New()
	h.ShowAll = false
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = warnStyle

	return MatchModel{
		cfg:     cfg,
		keys:    DefaultMatchKeyMap(),
		help:    h,
		spinner: sp,
		width:   cfg.Width,
		height:  cfg.Height,
	}
}

// Init starts listening for match events.
func (m MatchModel) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spinner.Tick, tickCmd(refreshRate))
}

// waitForEvent returns a command that waits for coordinator events.
func (m MatchModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		if m.cfg.Events == nil {
			return nil
		}
		evt, ok := <-m.cfg.Events
		if !ok {
			return nil
		}
		return evt
	}
}

// Update handles messages.
func (m MatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.waiting() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.notice != "" && time.Time(msg).Sub(m.noticeAt) > noticeTTL {
			m.notice = ""
		}
		return m, tickCmd(refreshRate)

	case multiplayer.MatchStartedEvent:
		m.opponent = msg.Opponent
		return m, m.waitForEvent()

	case multiplayer.ViewEvent:
		m.view = msg.View
		m.hasView = true
		if !m.centered {
			m.ctl.Center(&m.view)
			m.centered = true
		}
		m.ctl.Prune(&m.view)
		return m, m.waitForEvent()

	case multiplayer.StatusEvent:
		wasWaiting := m.waiting()
		m.status = msg.Status
		if m.waiting() && !wasWaiting {
			return m, tea.Batch(m.waitForEvent(), m.spinner.Tick)
		}
		return m, m.waitForEvent()

	case multiplayer.MatchEndedEvent:
		m.ended = &msg
		return m, nil

	case multiplayer.ErrorEvent:
		m.setNotice(msg.Message)
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m MatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.keys.MapKey(msg)
	switch action {
	case ActionQuit:
		if !m.cfg.ReadOnly && m.ended == nil {
			m.cfg.Coordinator.Send(multiplayer.LeaveMatchMsg{SessionID: m.cfg.SessionID, MatchID: m.cfg.MatchID})
		}
		m.quitting = true
		return m, tea.Quit
	case ActionHelp:
		m.help.ShowAll = !m.help.ShowAll
	case ActionCursorUp:
		m.ctl.MoveCursor(0, -1, &m.view)
	case ActionCursorDown:
		m.ctl.MoveCursor(0, 1, &m.view)
	case ActionCursorLeft:
		m.ctl.MoveCursor(-1, 0, &m.view)
	case ActionCursorRight:
		m.ctl.MoveCursor(1, 0, &m.view)
	case ActionSelect:
		m.ctl.Toggle(&m.view)
	case ActionSelectAll:
		m.ctl.SelectAll(&m.view)
	case ActionClear:
		m.ctl.Clear()
	}

	if !action.IsCommand() || m.cfg.ReadOnly || m.ended != nil || !m.hasView {
		return m, nil
	}
	cmd, ok := m.ctl.Command(action, &m.view)
	if !ok {
		m.setNotice("nothing to " + actionVerb(action))
		return m, nil
	}
	m.cfg.Coordinator.Send(multiplayer.IssueCommandMsg{
		SessionID: m.cfg.SessionID,
		MatchID:   m.cfg.MatchID,
		Command:   cmd,
	})
	m.setNotice(cmd.Type.String())
	return m, nil
}

func (m *MatchModel) setNotice(s string) {
	m.notice = s
	m.noticeAt = time.Now()
}

func actionVerb(a Action) string {
	switch a {
	case ActionMove:
		return "move"
	case ActionAttack:
		return "attack"
	case ActionHarvest:
		return "harvest"
	case ActionSpawn:
		return "spawn from"
	case ActionMerge:
		return "merge"
	case ActionFound:
		return "found a hive with"
	case ActionMorph:
		return "morph"
	case ActionStop:
		return "stop"
	default:
		return "do"
	}
}

func (m MatchModel) waiting() bool {
	return !m.hasView || m.status == netcode.StatusWaiting
}

// Controls returns the cursor and selection state.
func (m MatchModel) Controls() Controls {
	return m.ctl
}

// Ended returns the final event, or nil while the match runs.
func (m MatchModel) Ended() *multiplayer.MatchEndedEvent {
	return m.ended
}

// IsQuitting returns true if user requested to quit.
func (m MatchModel) IsQuitting() bool {
	return m.quitting
}

// View renders the match.
func (m MatchModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.hasView {
		return lipgloss.Place(max(m.width, 1), max(m.height, 1), lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" waiting for the match to start")
	}

	var b strings.Builder
	b.WriteString(renderHUD(&m.view, &m.ctl, m.cfg.TickRate))
	b.WriteString("\n")

	mapW := min(max(m.width, 20), int(m.view.Map.Width))
	mapH := min(max(m.height-hudLines-footerLines, 5), int(m.view.Map.Height))
	b.WriteString(DrawView(&m.view, &m.ctl, mapW, mapH).String())
	b.WriteString("\n")

	switch {
	case m.ended != nil:
		b.WriteString(renderOutcome(&m.view, m.ended.Reason.String()))
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  after %d ticks, press q to leave", m.ended.Ticks)))
	case m.status == netcode.StatusWaiting:
		b.WriteString(m.spinner.View() + warnStyle.Render(" waiting for opponent"))
	case m.cfg.ReadOnly:
		b.WriteString(mutedStyle.Render("spectating"))
	default:
		opp := m.opponent
		if opp == "" {
			opp = "opponent"
		}
		b.WriteString(mutedStyle.Render("vs " + opp))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.notice))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// Run starts the Bubble Tea program for a match view.
func Run(cfg MatchModelConfig) error {
	p := tea.NewProgram(
		NewMatchModel(cfg),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
