package netcode

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/antcraft/internal/protocol"
	"github.com/vovakirdan/antcraft/internal/sim"
)

var (
	// ErrDesync means the two simulations diverged.
	ErrDesync = errors.New("netcode: desync")
	// ErrPeerTimeout means the peer was silent past the disconnect timeout.
	ErrPeerTimeout = errors.New("netcode: peer timed out")
)

// Phase is where the lockstep state machine stands for the current tick.
type Phase uint8

const (
	AwaitingCommands Phase = iota
	Ready
	Advancing
)

func (p Phase) String() string {
	switch p {
	case AwaitingCommands:
		return "awaiting-commands"
	case Ready:
		return "ready"
	case Advancing:
		return "advancing"
	default:
		return fmt.Sprintf("phase(%d)", p)
	}
}

// Status is the session state surfaced to the player.
type Status uint8

const (
	StatusRunning Status = iota
	StatusWaiting
	StatusDisconnected
	StatusDesynced
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusWaiting:
		return "waiting"
	case StatusDisconnected:
		return "disconnected"
	case StatusDesynced:
		return "desynced"
	case StatusFinished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// Terminal reports whether the match is over.
func (s Status) Terminal() bool {
	return s >= StatusDisconnected
}

// DesyncReport describes a detected divergence.
type DesyncReport struct {
	Tick       uint32
	Local      sim.Digest
	Remote     sim.Digest
	LocalDump  []byte // JSON
	RemoteDump []byte // zstd-compressed JSON as sent by the peer, may be empty
}

// Session runs the lockstep protocol around one simulation. It is not safe
// for concurrent use; a single goroutine calls Issue and Step.
type Session struct {
	cfg    Config
	log    *log.Logger
	peer   Peer
	state  *sim.State
	queue  *sim.Queue
	local  sim.PlayerID
	remote sim.PlayerID

	pending map[uint32][]sim.Command
	sealed  uint32 // local input for every tick below this has been sent

	ownHashes map[uint32]sim.Digest
	draining  bool      // game over, waiting for the peer to hold all our input
	drainEnd  time.Time // give up waiting at this time
	phase     Phase
	status    Status
	err       error
	desync    *DesyncReport

	// OnAdvance, when set, sees every executed tick with its merged commands.
	OnAdvance func(tick uint32, cmds []sim.Command, state *sim.State)
}

// NewSession prepares a session for state, which must be at its starting tick.
func NewSession(state *sim.State, peer Peer, cfg Config, logger *log.Logger) *Session {
	return &Session{
		cfg:       cfg,
		log:       orDiscard(logger),
		peer:      peer,
		state:     state,
		queue:     sim.NewQueue(),
		local:     peer.Local(),
		remote:    1 - peer.Local(),
		pending:   make(map[uint32][]sim.Command),
		sealed:    state.Tick,
		ownHashes: make(map[uint32]sim.Digest),
	}
}

// Local returns this side's player slot.
func (s *Session) Local() sim.PlayerID { return s.local }

// Tick returns the next tick to execute.
func (s *Session) Tick() uint32 { return s.state.Tick }

// Phase returns the state machine position.
func (s *Session) Phase() Phase { return s.phase }

// Status returns the player-facing status.
func (s *Session) Status() Status { return s.status }

// Err returns the error that ended the session, if any.
func (s *Session) Err() error { return s.err }

// Desync returns the divergence report after StatusDesynced.
func (s *Session) Desync() (DesyncReport, bool) {
	if s.desync == nil {
		return DesyncReport{}, false
	}
	return *s.desync, true
}

// View returns the local player's read-only view of the simulation.
func (s *Session) View() sim.View {
	return s.state.ViewFor(s.local)
}

// State exposes the simulation for read-only inspection between steps.
func (s *Session) State() *sim.State { return s.state }

// Issue schedules a local command InputDelay ticks ahead and returns it as
// scheduled.
func (s *Session) Issue(cmd sim.Command) sim.Command {
	cmd.Player = s.local
	cmd.Tick = max(s.state.Tick+s.cfg.InputDelay, s.sealed)
	s.pending[cmd.Tick] = append(s.pending[cmd.Tick], cmd)
	return cmd
}

// Step performs one pass of the state machine: exchange input, advance the
// simulation if both players' commands for the current tick are present,
// and check digests. It returns true when a tick was executed.
func (s *Session) Step(now time.Time) (bool, error) {
	if s.status.Terminal() {
		return false, s.err
	}
	if s.draining {
		s.drain(now)
		return false, nil
	}
	if err := s.peer.Poll(now); err != nil {
		s.log.Warn("poll failed", "err", err)
	}
	if err := s.checkPeerDesync(); err != nil {
		return false, err
	}

	tick := s.state.Tick
	if err := s.seal(tick + s.cfg.InputDelay); err != nil {
		s.log.Warn("sending commands failed", "tick", tick, "err", err)
	}
	if !s.queue.Has(tick, s.remote) {
		if cmds, ok := s.peer.ReceiveCommands(tick); ok {
			s.queue.Submit(tick, s.remote, cmds)
		}
	}

	if !s.queue.Ready(tick) {
		// Input the peer sent before leaving is still played out.
		if err := s.checkPeerClosed(); err != nil {
			return false, err
		}
		s.phase = AwaitingCommands
		return false, s.checkTimeout(now)
	}
	s.phase = Ready
	if s.status == StatusWaiting {
		s.log.Info("peer caught up", "tick", tick)
	}
	s.status = StatusRunning

	s.phase = Advancing
	cmds := s.queue.Pop(tick)
	s.state.Advance(cmds)
	if s.OnAdvance != nil {
		s.OnAdvance(tick, cmds, s.state)
	}

	if s.cfg.HashInterval > 0 && s.state.Tick%s.cfg.HashInterval == 0 {
		d := s.state.Digest()
		s.ownHashes[s.state.Tick] = d
		if err := s.peer.SendHash(s.state.Tick, d); err != nil {
			s.log.Warn("sending hash failed", "tick", s.state.Tick, "err", err)
		}
	}
	if err := s.compareHashes(); err != nil {
		return true, err
	}

	if s.state.GameOver {
		s.log.Info("match over", "tick", s.state.Tick, "winner", s.state.Winner)
		s.draining = true
		s.drainEnd = now.Add(s.cfg.DrainTimeout)
		s.drain(now)
	}
	s.phase = AwaitingCommands
	return true, nil
}

// drain keeps the link alive after game over until the peer has
// acknowledged every command it needs to reach the same tick, the peer
// closes, or DrainTimeout passes.
func (s *Session) drain(now time.Time) {
	if err := s.peer.Poll(now); err != nil {
		s.log.Warn("poll failed", "err", err)
	}
	_, closed := s.peer.Closed()
	switch {
	case s.peer.Drained(), closed:
	case !now.Before(s.drainEnd):
		s.log.Warn("peer did not acknowledge final commands", "tick", s.state.Tick)
	default:
		return
	}
	s.draining = false
	s.finish(StatusFinished, nil, protocol.ReasonGameOver)
}

// seal sends local input for every tick below through, including empty markers.
func (s *Session) seal(through uint32) error {
	var first error
	for ; s.sealed < through; s.sealed++ {
		tick := s.sealed
		cmds := s.pending[tick]
		delete(s.pending, tick)
		sim.SortCommands(cmds)
		s.queue.Submit(tick, s.local, cmds)
		if err := s.peer.SendCommands(tick, cmds); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Session) checkTimeout(now time.Time) error {
	silent := now.Sub(s.peer.LastHeard())
	switch {
	case silent >= s.cfg.DisconnectTimeout:
		s.log.Error("peer timed out", "tick", s.state.Tick, "silent", silent)
		s.finish(StatusDisconnected, ErrPeerTimeout, protocol.ReasonTimeout)
		return s.err
	case silent >= s.cfg.WarnTimeout:
		if s.status != StatusWaiting {
			s.log.Warn("waiting for peer", "tick", s.state.Tick, "silent", silent)
		}
		s.status = StatusWaiting
	}
	return nil
}

func (s *Session) checkPeerDesync() error {
	if _, closed := s.peer.Closed(); !closed {
		return nil
	}
	if d, ok := s.peer.PeerDesync(); ok {
		s.log.Error("peer reported desync", "tick", d.Tick, "digest", d.Digest.Short())
		report := DesyncReport{Tick: d.Tick, Remote: d.Digest, RemoteDump: d.Dump}
		if own, ok := s.ownHashes[d.Tick]; ok {
			report.Local = own
		}
		report.LocalDump = s.state.Dump()
		s.desync = &report
		s.status = StatusDesynced
		s.err = fmt.Errorf("%w at tick %d (reported by peer)", ErrDesync, d.Tick)
		return s.err
	}
	return nil
}

func (s *Session) checkPeerClosed() error {
	reason, closed := s.peer.Closed()
	if !closed {
		return nil
	}
	if reason == protocol.ReasonGameOver {
		// The peer reached the end first; its last commands are already
		// here, so keep stepping until this side sees the same result.
		return nil
	}
	s.log.Warn("peer disconnected", "reason", reason)
	s.status = StatusDisconnected
	s.err = fmt.Errorf("%w: %s", ErrPeerDisconnected, reason)
	return s.err
}

// compareHashes checks every pending own digest the peer has answered, in
// tick order.
func (s *Session) compareHashes() error {
	ticks := make([]uint32, 0, len(s.ownHashes))
	for tick := range s.ownHashes {
		ticks = append(ticks, tick)
	}
	slices.Sort(ticks)
	for _, tick := range ticks {
		theirs, ok := s.peer.ReceiveHash(tick)
		if !ok {
			continue
		}
		mine := s.ownHashes[tick]
		delete(s.ownHashes, tick)
		if theirs == mine {
			continue
		}
		s.log.Error("desync detected", "tick", tick, "local", mine.Short(), "remote", theirs.Short())
		dump := s.state.Dump()
		s.desync = &DesyncReport{Tick: tick, Local: mine, Remote: theirs, LocalDump: dump}
		if err := s.peer.SendDesync(tick, mine, dump); err != nil {
			s.log.Warn("sending desync report failed", "err", err)
		}
		s.finish(StatusDesynced, fmt.Errorf("%w at tick %d", ErrDesync, tick), protocol.ReasonDesync)
		return s.err
	}
	return nil
}

func (s *Session) finish(status Status, err error, reason protocol.Reason) {
	s.status = status
	s.err = err
	if derr := s.peer.Disconnect(reason); derr != nil {
		s.log.Debug("disconnect", "err", derr)
	}
}

// Close ends the session from the local side.
func (s *Session) Close() {
	if s.status.Terminal() {
		return
	}
	if s.draining {
		s.draining = false
		s.finish(StatusFinished, nil, protocol.ReasonGameOver)
		return
	}
	s.finish(StatusDisconnected, nil, protocol.ReasonQuit)
}
