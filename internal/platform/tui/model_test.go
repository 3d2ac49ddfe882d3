package tui

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/antcraft/internal/multiplayer"
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []multiplayer.CoordinatorMessage
}

func (f *fakeSender) Send(msg multiplayer.CoordinatorMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeSender) sent() []multiplayer.CoordinatorMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]multiplayer.CoordinatorMessage(nil), f.msgs...)
}

func update(t *testing.T, m MatchModel, msgs ...tea.Msg) MatchModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		mm, ok := next.(MatchModel)
		if !ok {
			t.Fatalf("Update() returned %T, expected MatchModel", next)
		}
		m = mm
	}
	return m
}

func newTestModel(sender Sender) MatchModel {
	cfg := MatchModelConfig{
		SessionID: "local",
		MatchID:   "m-1",
		TickRate:  10,
		Width:     80,
		Height:    24,
	}
	if sender != nil {
		cfg.Coordinator = sender
	}
	return NewMatchModel(cfg)
}

func TestMatchModelIssuesCommands(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModel(sender)
	m = update(t, m, multiplayer.ViewEvent{MatchID: "m-1", View: testView()})

	if got := m.Controls().Cursor; got != (sim.Point{X: 3, Y: 3}) {
		t.Fatalf("cursor = %v, expected the hive tile", got)
	}

	// Select the two ants at (5,3) and attack the enemy at (10,3).
	right := tea.KeyMsg{Type: tea.KeyRight}
	m = update(t, m, right, right, runeKey(" "))
	for range 5 {
		m = update(t, m, right)
	}
	m = update(t, m, runeKey("a"))

	msgs := sender.sent()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, expected 1: %v", len(msgs), msgs)
	}
	issue, ok := msgs[0].(multiplayer.IssueCommandMsg)
	if !ok {
		t.Fatalf("sent %T, expected IssueCommandMsg", msgs[0])
	}
	if issue.SessionID != "local" || issue.MatchID != "m-1" {
		t.Errorf("IssueCommandMsg ids = %s/%s, expected local/m-1", issue.SessionID, issue.MatchID)
	}
	if issue.Command.Type != sim.CmdAttack || issue.Command.Target != 6 || len(issue.Command.Entities) != 2 {
		t.Errorf("Command = %v, expected attack on 6 by two ants", issue.Command)
	}
}

func TestMatchModelNothingToDo(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModel(sender)
	m = update(t, m, multiplayer.ViewEvent{View: testView()}, runeKey("m"))
	if len(sender.sent()) != 0 {
		t.Errorf("move without selection sent %v", sender.sent())
	}
	if !strings.Contains(m.View(), "nothing to move") {
		t.Error("View() lacks the nothing-to-move notice")
	}
}

func TestMatchModelReadOnly(t *testing.T) {
	m := newTestModel(nil)
	m = update(t, m, multiplayer.ViewEvent{View: testView()}, runeKey("s"))
	m = update(t, m, runeKey("q"))
	if !m.IsQuitting() {
		t.Error("q did not quit the spectator view")
	}
	if m.View() != "" {
		t.Error("View() after quit is not empty")
	}
}

func TestMatchModelQuitLeavesMatch(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModel(sender)
	m = update(t, m, multiplayer.ViewEvent{View: testView()})

	_, cmd := m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	msgs := sender.sent()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, expected 1", len(msgs))
	}
	if leave, ok := msgs[0].(multiplayer.LeaveMatchMsg); !ok || leave.MatchID != "m-1" {
		t.Errorf("sent %#v, expected LeaveMatchMsg for m-1", msgs[0])
	}
}

func TestMatchModelStatusAndEnd(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModel(sender)

	if !strings.Contains(m.View(), "waiting for the match to start") {
		t.Error("View() before the first view lacks the start notice")
	}

	m = update(t, m,
		multiplayer.ViewEvent{View: testView()},
		multiplayer.StatusEvent{Status: netcode.StatusWaiting},
	)
	if !strings.Contains(m.View(), "waiting for opponent") {
		t.Error("View() while waiting lacks the waiting line")
	}

	v := testView()
	v.GameOver = true
	v.Winner = 0
	m = update(t, m,
		multiplayer.ViewEvent{View: v},
		multiplayer.MatchEndedEvent{Reason: multiplayer.MatchEndReasonCompleted, Winner: 0, Ticks: 42},
	)
	if m.Ended() == nil {
		t.Fatal("Ended() = nil after MatchEndedEvent")
	}
	if !strings.Contains(m.View(), "VICTORY") {
		t.Error("View() after a win lacks the victory banner")
	}

	// Commands after the end are dropped, and quitting no longer leaves.
	m = update(t, m, runeKey("s"), runeKey("q"))
	if n := len(sender.sent()); n != 0 {
		t.Errorf("sent %d messages after the match ended, expected 0", n)
	}
}

func TestMatchModelPrunesDeadSelection(t *testing.T) {
	m := newTestModel(&fakeSender{})
	m = update(t, m, multiplayer.ViewEvent{View: testView()}, tea.KeyMsg{Type: tea.KeyTab})
	if len(m.Controls().Selected) != 3 {
		t.Fatalf("selected %v, expected three ants", m.Controls().Selected)
	}

	v := testView()
	v.Entities = v.Entities[:2] // ants 3 and 4 died
	m = update(t, m, multiplayer.ViewEvent{View: v})
	if got := m.Controls().Selected; len(got) != 1 || got[0] != 2 {
		t.Errorf("selected %v after deaths, expected [2]", got)
	}
}
