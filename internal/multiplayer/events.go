package multiplayer

import (
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

// SessionEvent is an event sent from a match or the coordinator to a viewer.
type SessionEvent interface {
	sessionEvent()
}

// MatchStartedEvent is sent when a viewer attaches to a match.
type MatchStartedEvent struct {
	MatchID  MatchID
	Mode     MatchMode
	Side     PlayerID
	Seed     uint32
	Opponent string
}

func (MatchStartedEvent) sessionEvent() {}

// ViewEvent carries the local player's view after an executed tick.
type ViewEvent struct {
	MatchID MatchID
	View    sim.View
}

func (ViewEvent) sessionEvent() {}

// StatusEvent is sent when the lockstep status changes, for example when
// the match starts waiting for a silent peer.
type StatusEvent struct {
	MatchID MatchID
	Tick    uint32
	Status  netcode.Status
}

func (StatusEvent) sessionEvent() {}

// MatchEndedEvent is sent when the match ends.
type MatchEndedEvent struct {
	MatchID MatchID
	Reason  MatchEndReason
	Winner  PlayerID // sim.Neutral for a draw or an aborted match
	Ticks   uint32
}

func (MatchEndedEvent) sessionEvent() {}

// ErrorEvent reports a coordinator request that could not be served.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) sessionEvent() {}

// MatchEndReason describes why a match ended.
type MatchEndReason int

const (
	MatchEndReasonCompleted  MatchEndReason = iota // a player won or the match drew
	MatchEndReasonDisconnect                       // the peer quit
	MatchEndReasonTimeout                          // the peer went silent
	MatchEndReasonDesync                           // digests diverged
	MatchEndReasonCancelled                        // the local player left
)

func (r MatchEndReason) String() string {
	switch r {
	case MatchEndReasonCompleted:
		return "completed"
	case MatchEndReasonDisconnect:
		return "disconnect"
	case MatchEndReasonTimeout:
		return "timeout"
	case MatchEndReasonDesync:
		return "desync"
	case MatchEndReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CoordinatorMessage is a request from a viewer to the coordinator.
type CoordinatorMessage interface {
	coordinatorMessage()
}

// IssueCommandMsg queues a local command for a match. Only the session
// that owns the match may issue.
type IssueCommandMsg struct {
	SessionID SessionID
	MatchID   MatchID
	Command   sim.Command
}

func (IssueCommandMsg) coordinatorMessage() {}

// WatchMatchMsg attaches a spectator to a running match.
type WatchMatchMsg struct {
	SessionID SessionID
	MatchID   MatchID
}

func (WatchMatchMsg) coordinatorMessage() {}

// LeaveMatchMsg detaches a viewer; the owner leaving ends the match.
type LeaveMatchMsg struct {
	SessionID SessionID
	MatchID   MatchID
}

func (LeaveMatchMsg) coordinatorMessage() {}

// SessionDisconnectedMsg is sent when a viewer's connection closes.
type SessionDisconnectedMsg struct {
	SessionID SessionID
}

func (SessionDisconnectedMsg) coordinatorMessage() {}
