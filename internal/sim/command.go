package sim

import (
	"cmp"
	"fmt"
	"slices"
)

// CommandType is the kind of a player intent. Values are wire-stable.
type CommandType uint8

const (
	CmdMove CommandType = iota + 1
	CmdStop
	CmdHarvest
	CmdSpawnAnt
	CmdMergeQueen
	CmdFoundHive
	CmdAttack
	CmdMorphSpitter
)

func (t CommandType) String() string {
	switch t {
	case CmdMove:
		return "move"
	case CmdStop:
		return "stop"
	case CmdHarvest:
		return "harvest"
	case CmdSpawnAnt:
		return "spawn-ant"
	case CmdMergeQueen:
		return "merge-queen"
	case CmdFoundHive:
		return "found-hive"
	case CmdAttack:
		return "attack"
	case CmdMorphSpitter:
		return "morph-spitter"
	default:
		return fmt.Sprintf("command(%d)", t)
	}
}

// Command is an immutable player intent for one tick. TargetX/TargetY are
// milli-tiles. Target is the object of harvest, found, attack and the hive
// of spawn and merge.
type Command struct {
	Type     CommandType
	Player   PlayerID
	Tick     uint32
	Entities []EntityID
	TargetX  int32
	TargetY  int32
	Target   EntityID
}

func (c Command) String() string {
	return fmt.Sprintf("%s p=%d t=%d ids=%v at=(%d,%d) target=%d",
		c.Type, c.Player, c.Tick, c.Entities, c.TargetX, c.TargetY, c.Target)
}

// CompareCommands is the stable execution order: player, type, tick, entity
// ids, target position, target entity.
func CompareCommands(a, b Command) int {
	return cmp.Or(
		cmp.Compare(a.Player, b.Player),
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.Tick, b.Tick),
		slices.Compare(a.Entities, b.Entities),
		cmp.Compare(a.TargetX, b.TargetX),
		cmp.Compare(a.TargetY, b.TargetY),
		cmp.Compare(a.Target, b.Target),
	)
}

// SortCommands orders commands for deterministic execution.
func SortCommands(cmds []Command) {
	slices.SortStableFunc(cmds, CompareCommands)
}

type frame struct {
	present [Players]bool
	cmds    []Command
}

// Queue buffers commands by target tick and player. A player's slot for a
// tick is either absent (not arrived) or present, possibly with zero
// commands: the empty marker.
type Queue struct {
	frames map[uint32]*frame
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{frames: make(map[uint32]*frame)}
}

func (q *Queue) frame(tick uint32) *frame {
	f, ok := q.frames[tick]
	if !ok {
		f = &frame{}
		q.frames[tick] = f
	}
	return f
}

// Add queues one command and marks its player present for its tick.
// Exact duplicates are dropped.
func (q *Queue) Add(c Command) {
	if !c.Player.Valid() {
		return
	}
	f := q.frame(c.Tick)
	f.present[c.Player] = true
	for _, have := range f.cmds {
		if CompareCommands(have, c) == 0 {
			return
		}
	}
	f.cmds = append(f.cmds, c)
}

// MarkEmpty records that player has no (further) input for tick.
func (q *Queue) MarkEmpty(tick uint32, player PlayerID) {
	if !player.Valid() {
		return
	}
	q.frame(tick).present[player] = true
}

// Submit records a player's complete input for a tick: the commands, or the
// empty marker when cmds is empty. Commands tagged for other ticks are ignored.
func (q *Queue) Submit(tick uint32, player PlayerID, cmds []Command) {
	q.MarkEmpty(tick, player)
	for _, c := range cmds {
		if c.Tick == tick && c.Player == player {
			q.Add(c)
		}
	}
}

// Has reports whether player's input for tick has arrived.
func (q *Queue) Has(tick uint32, player PlayerID) bool {
	if !player.Valid() {
		return false
	}
	f, ok := q.frames[tick]
	return ok && f.present[player]
}

// Ready reports whether every player's input for tick has arrived.
func (q *Queue) Ready(tick uint32) bool {
	for p := range Players {
		if !q.Has(tick, PlayerID(p)) {
			return false
		}
	}
	return true
}

// peek returns player's commands for tick without removing them.
func (q *Queue) peek(tick uint32, player PlayerID) []Command {
	f, ok := q.frames[tick]
	if !ok {
		return nil
	}
	var out []Command
	for _, c := range f.cmds {
		if c.Player == player {
			out = append(out, c)
		}
	}
	return out
}

// Pop removes the frame for tick and returns its commands in execution order.
func (q *Queue) Pop(tick uint32) []Command {
	f, ok := q.frames[tick]
	if !ok {
		return nil
	}
	delete(q.frames, tick)
	out := slices.Clone(f.cmds)
	SortCommands(out)
	return out
}

// Len returns the number of buffered ticks.
func (q *Queue) Len() int {
	return len(q.frames)
}
