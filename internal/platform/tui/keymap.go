package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Action is a match input derived from a key press.
type Action int

const (
	ActionNone Action = iota
	ActionCursorUp
	ActionCursorDown
	ActionCursorLeft
	ActionCursorRight
	ActionSelect    // toggle own units under the cursor
	ActionSelectAll // every own ant
	ActionClear
	ActionMove
	ActionAttack
	ActionHarvest
	ActionSpawn
	ActionMerge
	ActionFound
	ActionMorph
	ActionStop
	ActionHelp
	ActionQuit
)

// MatchKeyMap defines the key bindings of the match view.
type MatchKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Select    key.Binding
	SelectAll key.Binding
	Clear     key.Binding
	Move      key.Binding
	Attack    key.Binding
	Harvest   key.Binding
	Spawn     key.Binding
	Merge     key.Binding
	Found     key.Binding
	Morph     key.Binding
	Stop      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k MatchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Move, k.Attack, k.Harvest, k.Spawn, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k MatchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Select, k.SelectAll, k.Clear, k.Stop},
		{k.Move, k.Attack, k.Harvest},
		{k.Spawn, k.Merge, k.Found, k.Morph},
		{k.Help, k.Quit},
	}
}

// DefaultMatchKeyMap returns default key bindings.
func DefaultMatchKeyMap() MatchKeyMap {
	return MatchKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "cursor up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "cursor down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("left/h", "cursor left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("right/l", "cursor right"),
		),
		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "all ants"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "deselect"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move"),
		),
		Attack: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "attack"),
		),
		Harvest: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "harvest"),
		),
		Spawn: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "spawn ant"),
		),
		Merge: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "merge queen"),
		),
		Found: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "found hive"),
		),
		Morph: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "spitter"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// MapKey translates a key message to a match action.
func (k MatchKeyMap) MapKey(msg tea.KeyMsg) Action {
	bindings := []struct {
		binding key.Binding
		action  Action
	}{
		{k.Quit, ActionQuit},
		{k.Up, ActionCursorUp},
		{k.Down, ActionCursorDown},
		{k.Left, ActionCursorLeft},
		{k.Right, ActionCursorRight},
		{k.Select, ActionSelect},
		{k.SelectAll, ActionSelectAll},
		{k.Clear, ActionClear},
		{k.Move, ActionMove},
		{k.Attack, ActionAttack},
		{k.Harvest, ActionHarvest},
		{k.Spawn, ActionSpawn},
		{k.Merge, ActionMerge},
		{k.Found, ActionFound},
		{k.Morph, ActionMorph},
		{k.Stop, ActionStop},
		{k.Help, ActionHelp},
	}
	for _, b := range bindings {
		if key.Matches(msg, b.binding) {
			return b.action
		}
	}
	return ActionNone
}

// IsCommand reports whether the action produces a simulation command.
func (a Action) IsCommand() bool {
	return a >= ActionMove && a <= ActionStop
}
