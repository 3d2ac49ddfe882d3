package multiplayer

import "sync"

// SessionHandle is the transport-neutral side of a viewer. Matches and the
// coordinator push events through it without knowing whether a Bubble Tea
// program or an SSH channel sits behind it.
type SessionHandle interface {
	ID() SessionID

	// Send delivers an event without blocking.
	Send(evt SessionEvent)

	// Done is closed when the viewer goes away.
	Done() <-chan struct{}
}

// ChannelSession is a SessionHandle backed by a buffered channel. When the
// buffer is full the oldest event is dropped: views supersede each other,
// so a slow viewer only loses frames.
type ChannelSession struct {
	id       SessionID
	events   chan SessionEvent
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a channel-backed handle.
func NewChannelSession(id SessionID, bufferSize int) *ChannelSession {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelSession{
		id:     id,
		events: make(chan SessionEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

func (s *ChannelSession) ID() SessionID {
	return s.id
}

func (s *ChannelSession) Send(evt SessionEvent) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- evt:
		return
	default:
	}
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- evt:
	default:
	}
}

// Events is read by the UI layer.
func (s *ChannelSession) Events() <-chan SessionEvent {
	return s.events
}

func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done. Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// SessionRegistry tracks connected viewers.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[SessionID]SessionHandle
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[SessionID]SessionHandle),
	}
}

func (r *SessionRegistry) Register(session SessionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
}

func (r *SessionRegistry) Unregister(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *SessionRegistry) Get(id SessionID) (SessionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// viewers is the set of handles a match broadcasts to.
type viewers struct {
	mu   sync.RWMutex
	list []SessionHandle
}

func (v *viewers) add(s SessionHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, have := range v.list {
		if have.ID() == s.ID() {
			return
		}
	}
	v.list = append(v.list, s)
}

func (v *viewers) remove(id SessionID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, s := range v.list {
		if s.ID() == id {
			v.list = append(v.list[:i], v.list[i+1:]...)
			return true
		}
	}
	return false
}

func (v *viewers) count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.list)
}

func (v *viewers) broadcast(evt SessionEvent) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, s := range v.list {
		s.Send(evt)
	}
}
