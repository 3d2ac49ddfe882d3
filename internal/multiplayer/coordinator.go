package multiplayer

import (
	"cmp"
	"context"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/replay"
)

// MatchResultSaver persists finished matches. The storage package
// implements it; the coordinator does not depend on storage directly.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResultData) error
	SaveCheckpoint(matchID string, cp replay.Checkpoint) error
	SaveDesync(matchID string, report netcode.DesyncReport) error
}

// MatchResultData contains match result data for persistence.
type MatchResultData struct {
	MatchID      string
	Mode         string
	Seed         uint32
	LocalPlayer  int
	Opponent     string
	Winner       int // -1 for no winner
	EndReason    string
	Ticks        uint32
	DurationSecs int
}

// Coordinator owns running matches and routes viewers to them.
type Coordinator struct {
	sessions    *SessionRegistry
	resultSaver MatchResultSaver // Optional, can be nil
	log         *log.Logger

	mu      sync.RWMutex
	matches map[MatchID]*Match
	ended   map[MatchID]MatchResult

	// Which match each viewer watches.
	sessionMatch map[SessionID]MatchID

	msgChan chan CoordinatorMessage
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator. logger may be nil.
func NewCoordinator(sessions *SessionRegistry, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if sessions == nil {
		sessions = NewSessionRegistry()
	}
	return &Coordinator{
		sessions:     sessions,
		log:          logger,
		matches:      make(map[MatchID]*Match),
		ended:        make(map[MatchID]MatchResult),
		sessionMatch: make(map[SessionID]MatchID),
		msgChan:      make(chan CoordinatorMessage, 256),
		done:         make(chan struct{}),
	}
}

// SetResultSaver sets the optional match result saver.
func (c *Coordinator) SetResultSaver(saver MatchResultSaver) {
	c.resultSaver = saver
}

// Sessions returns the viewer registry.
func (c *Coordinator) Sessions() *SessionRegistry {
	return c.sessions
}

// Start begins processing messages.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.processMessages()
	}()
}

// Stop stops every running match and waits for them to finish.
func (c *Coordinator) Stop() {
	select {
	case <-c.done:
		return
	default:
	}
	close(c.done)
	c.mu.RLock()
	for _, m := range c.matches {
		m.Stop()
	}
	c.mu.RUnlock()
	c.wg.Wait()
}

// Send sends a message to the coordinator for async processing.
func (c *Coordinator) Send(msg CoordinatorMessage) {
	select {
	case c.msgChan <- msg:
	case <-c.done:
	}
}

func (c *Coordinator) processMessages() {
	for {
		select {
		case msg := <-c.msgChan:
			c.handleMessage(msg)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) handleMessage(msg CoordinatorMessage) {
	switch m := msg.(type) {
	case IssueCommandMsg:
		c.handleIssue(m)
	case WatchMatchMsg:
		c.handleWatch(m)
	case LeaveMatchMsg:
		c.handleLeave(m.SessionID, m.MatchID)
	case SessionDisconnectedMsg:
		c.mu.RLock()
		id, ok := c.sessionMatch[m.SessionID]
		c.mu.RUnlock()
		if ok {
			c.handleLeave(m.SessionID, id)
		}
		c.sessions.Unregister(m.SessionID)
	}
}

// StartMatch registers m and runs it in the background.
func (c *Coordinator) StartMatch(ctx context.Context, m *Match) {
	c.mu.Lock()
	c.matches[m.ID()] = m
	if m.owner != nil {
		c.sessionMatch[m.owner.ID()] = m.ID()
		c.sessions.Register(m.owner)
	}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		m.Run(ctx, func(result MatchResult) {
			c.handleMatchEnded(m, result)
		})
	}()
}

func (c *Coordinator) handleIssue(msg IssueCommandMsg) {
	c.mu.RLock()
	m, ok := c.matches[msg.MatchID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	if m.Owner() != msg.SessionID {
		c.log.Warn("ignoring command from a spectator", "session", msg.SessionID, "match", msg.MatchID)
		return
	}
	m.Issue(msg.Command)
}

func (c *Coordinator) handleWatch(msg WatchMatchMsg) {
	session, ok := c.sessions.Get(msg.SessionID)
	if !ok {
		return
	}
	c.mu.Lock()
	m, ok := c.matches[msg.MatchID]
	if !ok {
		c.mu.Unlock()
		session.Send(ErrorEvent{Message: "Match not found"})
		return
	}
	if prev, watching := c.sessionMatch[msg.SessionID]; watching && prev != msg.MatchID {
		if old, exists := c.matches[prev]; exists {
			old.Unwatch(msg.SessionID)
		}
	}
	c.sessionMatch[msg.SessionID] = msg.MatchID
	c.mu.Unlock()

	m.Watch(session)
	c.log.Info("spectator attached", "session", msg.SessionID, "match", msg.MatchID)
}

func (c *Coordinator) handleLeave(sessionID SessionID, matchID MatchID) {
	c.mu.Lock()
	m, ok := c.matches[matchID]
	delete(c.sessionMatch, sessionID)
	c.mu.Unlock()
	if !ok {
		return
	}
	if m.Owner() == sessionID {
		m.Stop()
		return
	}
	m.Unwatch(sessionID)
}

func (c *Coordinator) handleMatchEnded(m *Match, result MatchResult) {
	c.mu.Lock()
	delete(c.matches, m.ID())
	c.ended[m.ID()] = result
	for sid, mid := range c.sessionMatch {
		if mid == m.ID() {
			delete(c.sessionMatch, sid)
		}
	}
	c.mu.Unlock()

	if c.resultSaver == nil {
		return
	}
	data := MatchResultData{
		MatchID:      string(result.MatchID),
		Mode:         result.Mode.String(),
		Seed:         result.Seed,
		LocalPlayer:  int(m.Local()),
		Opponent:     result.Opponent,
		Winner:       int(result.Winner),
		EndReason:    result.Reason.String(),
		Ticks:        result.Ticks,
		DurationSecs: int(result.Duration.Seconds()),
	}
	if err := c.resultSaver.SaveMatchResult(data); err != nil {
		c.log.Error("cannot save match result", "match", result.MatchID, "err", err)
		return
	}
	for _, cp := range result.Checkpoints {
		if err := c.resultSaver.SaveCheckpoint(data.MatchID, cp); err != nil {
			c.log.Error("cannot save checkpoint", "match", result.MatchID, "tick", cp.Tick, "err", err)
			break
		}
	}
	if result.Desync != nil {
		if err := c.resultSaver.SaveDesync(data.MatchID, *result.Desync); err != nil {
			c.log.Error("cannot save desync report", "match", result.MatchID, "err", err)
		}
	}
}

// Matches lists the running matches, oldest id first.
func (c *Coordinator) Matches() []MatchInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MatchInfo, 0, len(c.matches))
	for _, m := range c.matches {
		out = append(out, m.Info())
	}
	slices.SortFunc(out, func(a, b MatchInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// GetMatch returns a running match by ID.
func (c *Coordinator) GetMatch(id MatchID) (*Match, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.matches[id]
	return m, ok
}

// Result returns the outcome of an ended match.
func (c *Coordinator) Result(id MatchID) (MatchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.ended[id]
	return r, ok
}

// MatchCount returns the number of running matches.
func (c *Coordinator) MatchCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.matches)
}
