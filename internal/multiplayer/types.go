// Package multiplayer runs AntCraft matches: a ticker loop around the
// lockstep session, viewer handles that receive views and status changes,
// and a coordinator that owns match lifecycles and saves results.
package multiplayer

import (
	"github.com/google/uuid"

	"github.com/vovakirdan/antcraft/internal/sim"
)

// PlayerID is the simulation's player slot.
type PlayerID = sim.PlayerID

// Player slot constants for convenience.
const (
	Player1 PlayerID = 0
	Player2 PlayerID = 1
)

// SessionID identifies one viewer: the local terminal or an SSH spectator.
type SessionID string

// MatchID uniquely identifies a match.
type MatchID string

// NewMatchID returns a fresh random match id.
func NewMatchID() MatchID {
	return MatchID(uuid.NewString())
}

// MatchMode describes how the opponent is reached.
type MatchMode int

const (
	// MatchModeSolo plays against the loopback peer.
	MatchModeSolo MatchMode = iota

	// MatchModeHost listens for a joiner over UDP.
	MatchModeHost

	// MatchModeJoin connects to a host over UDP.
	MatchModeJoin
)

// String returns a human-readable name for the match mode.
func (m MatchMode) String() string {
	switch m {
	case MatchModeSolo:
		return "Solo"
	case MatchModeHost:
		return "Host"
	case MatchModeJoin:
		return "Join"
	default:
		return "Unknown"
	}
}

// MatchHandle exposes match metadata to viewers.
type MatchHandle interface {
	ID() MatchID
	Mode() MatchMode
	Local() PlayerID
}

// MatchInfo is a snapshot of a running match for listings.
type MatchInfo struct {
	ID       MatchID
	Mode     MatchMode
	Local    PlayerID
	Opponent string
	Tick     uint32
	Viewers  int
}
