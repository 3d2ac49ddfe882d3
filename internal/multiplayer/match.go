package multiplayer

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/replay"
	"github.com/vovakirdan/antcraft/internal/sim"
)

// Recorder receives the executed command stream, typically a replay file.
type Recorder interface {
	Record(tick uint32, cmds []sim.Command) error
	Checkpoint(tick uint32, d sim.Digest) error
}

// MatchConfig describes a match before it starts.
type MatchConfig struct {
	ID       MatchID
	Mode     MatchMode
	Seed     uint32
	Opponent string
	TickRate int

	// CheckpointInterval is the tick spacing of stored digests; 0 disables.
	CheckpointInterval uint32
	Recorder           Recorder
}

// MatchResult contains the outcome of a finished match.
type MatchResult struct {
	MatchID     MatchID
	Mode        MatchMode
	Seed        uint32
	Opponent    string
	Reason      MatchEndReason
	Winner      PlayerID
	Ticks       uint32
	Duration    time.Duration
	Checkpoints []replay.Checkpoint
	Desync      *netcode.DesyncReport
	Err         error
}

// Match drives one lockstep session in real time. The session is only
// touched by the Run goroutine; everything else talks to it through
// channels.
type Match struct {
	cfg     MatchConfig
	log     *log.Logger
	session *netcode.Session
	owner   SessionHandle
	viewers viewers

	commands    chan sim.Command
	tick        atomic.Uint32
	checkpoints []replay.Checkpoint
	recordErr   error

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMatch wraps a ready session. owner is the local viewer, which may be nil
// for headless matches; it is the only one allowed to issue commands.
func NewMatch(cfg MatchConfig, session *netcode.Session, owner SessionHandle, logger *log.Logger) *Match {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.ID == "" {
		cfg.ID = NewMatchID()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 10
	}
	m := &Match{
		cfg:      cfg,
		log:      logger.With("match", cfg.ID),
		session:  session,
		owner:    owner,
		commands: make(chan sim.Command, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if owner != nil {
		m.viewers.add(owner)
	}
	session.OnAdvance = m.onAdvance
	return m
}

func (m *Match) ID() MatchID { return m.cfg.ID }

func (m *Match) Mode() MatchMode { return m.cfg.Mode }

func (m *Match) Local() PlayerID { return m.session.Local() }

// Tick returns the next tick to execute.
func (m *Match) Tick() uint32 { return m.tick.Load() }

// Owner returns the viewer that plays this match.
func (m *Match) Owner() SessionID { return ownerID(m.owner) }

func ownerID(s SessionHandle) SessionID {
	if s == nil {
		return ""
	}
	return s.ID()
}

// Info returns a listing snapshot.
func (m *Match) Info() MatchInfo {
	return MatchInfo{
		ID:       m.cfg.ID,
		Mode:     m.cfg.Mode,
		Local:    m.session.Local(),
		Opponent: m.cfg.Opponent,
		Tick:     m.tick.Load(),
		Viewers:  m.viewers.count(),
	}
}

// Issue queues a local command. It never blocks; a full queue drops the
// command.
func (m *Match) Issue(cmd sim.Command) bool {
	select {
	case m.commands <- cmd:
		return true
	default:
		m.log.Warn("command queue full, dropping command", "type", cmd.Type)
		return false
	}
}

// Watch attaches a spectator.
func (m *Match) Watch(s SessionHandle) {
	m.viewers.add(s)
	s.Send(m.startedEvent())
}

// Unwatch detaches a viewer.
func (m *Match) Unwatch(id SessionID) bool {
	return m.viewers.remove(id)
}

func (m *Match) startedEvent() MatchStartedEvent {
	return MatchStartedEvent{
		MatchID:  m.cfg.ID,
		Mode:     m.cfg.Mode,
		Side:     m.session.Local(),
		Seed:     m.cfg.Seed,
		Opponent: m.cfg.Opponent,
	}
}

func (m *Match) onAdvance(tick uint32, cmds []sim.Command, st *sim.State) {
	m.tick.Store(st.Tick)
	if m.cfg.Recorder != nil && m.recordErr == nil {
		if err := m.cfg.Recorder.Record(tick, cmds); err != nil {
			m.recordErr = err
			m.log.Error("replay recording stopped", "tick", tick, "err", err)
		}
	}
	if m.cfg.CheckpointInterval == 0 || st.Tick%m.cfg.CheckpointInterval != 0 {
		return
	}
	d := st.Digest()
	m.checkpoints = append(m.checkpoints, replay.Checkpoint{Tick: st.Tick, Digest: d})
	if m.cfg.Recorder != nil && m.recordErr == nil {
		if err := m.cfg.Recorder.Checkpoint(st.Tick, d); err != nil {
			m.recordErr = err
			m.log.Error("replay recording stopped", "tick", st.Tick, "err", err)
		}
	}
}

// Run executes the match until it ends, ctx is cancelled or Stop is called.
// One tick is due every 1/TickRate seconds; in between the session is
// polled so a late peer is caught up on the next poll rather than the next
// tick.
func (m *Match) Run(ctx context.Context, onComplete func(MatchResult)) {
	defer close(m.done)

	tickDuration := time.Second / time.Duration(m.cfg.TickRate)
	ticker := time.NewTicker(max(tickDuration/4, time.Millisecond))
	defer ticker.Stop()

	started := time.Now()
	nextDue := started
	lastStatus := m.session.Status()
	m.log.Info("match started", "mode", m.cfg.Mode, "side", m.session.Local(), "seed", m.cfg.Seed)
	m.viewers.broadcast(m.startedEvent())
	m.viewers.broadcast(ViewEvent{MatchID: m.cfg.ID, View: m.session.View()})

	finish := func(reason MatchEndReason) {
		res := m.result(reason, time.Since(started))
		m.log.Info("match ended", "reason", reason, "winner", res.Winner, "ticks", res.Ticks)
		m.viewers.broadcast(MatchEndedEvent{MatchID: m.cfg.ID, Reason: reason, Winner: res.Winner, Ticks: res.Ticks})
		if onComplete != nil {
			onComplete(res)
		}
	}

	for {
		select {
		case <-ctx.Done():
			m.session.Close()
			finish(MatchEndReasonCancelled)
			return
		case <-m.stop:
			m.session.Close()
			finish(MatchEndReasonCancelled)
			return
		case now := <-ticker.C:
			m.drainCommands()
			if now.Before(nextDue) {
				continue
			}
			advanced, err := m.session.Step(now)
			if advanced {
				nextDue = nextDue.Add(tickDuration)
				// Do not sprint to catch up after a long stall.
				if now.Sub(nextDue) > 3*tickDuration {
					nextDue = now
				}
				m.viewers.broadcast(ViewEvent{MatchID: m.cfg.ID, View: m.session.View()})
			}
			if status := m.session.Status(); status != lastStatus {
				lastStatus = status
				m.viewers.broadcast(StatusEvent{MatchID: m.cfg.ID, Tick: m.session.Tick(), Status: status})
			}
			if m.session.Status().Terminal() {
				finish(endReason(m.session.Status(), err))
				return
			}
		}
	}
}

func (m *Match) drainCommands() {
	for {
		select {
		case cmd := <-m.commands:
			m.session.Issue(cmd)
		default:
			return
		}
	}
}

func endReason(status netcode.Status, err error) MatchEndReason {
	switch {
	case status == netcode.StatusFinished:
		return MatchEndReasonCompleted
	case status == netcode.StatusDesynced:
		return MatchEndReasonDesync
	case errors.Is(err, netcode.ErrPeerTimeout):
		return MatchEndReasonTimeout
	default:
		return MatchEndReasonDisconnect
	}
}

func (m *Match) result(reason MatchEndReason, elapsed time.Duration) MatchResult {
	st := m.session.State()
	res := MatchResult{
		MatchID:     m.cfg.ID,
		Mode:        m.cfg.Mode,
		Seed:        m.cfg.Seed,
		Opponent:    m.cfg.Opponent,
		Reason:      reason,
		Winner:      sim.Neutral,
		Ticks:       st.Tick,
		Duration:    elapsed,
		Checkpoints: m.checkpoints,
		Err:         m.session.Err(),
	}
	if st.GameOver {
		res.Winner = st.Winner
	}
	if d, ok := m.session.Desync(); ok {
		res.Desync = &d
	}
	return res
}

// Done is closed once Run has returned.
func (m *Match) Done() <-chan struct{} {
	return m.done
}

// Stop ends the match from the local side.
func (m *Match) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}
