package netcode

import (
	"math/rand/v2"
	"sync"
)

// LinkOptions degrade an in-memory link. Percentages are 0-100.
type LinkOptions struct {
	LossPercent      int
	DuplicatePercent int
	Seed             uint64
}

type memoryLink struct {
	mu     sync.Mutex
	closed bool
	rng    *rand.Rand
	opts   LinkOptions
	queues [2]chan []byte
}

// MemoryTransport is one end of an in-process link, used by tests and
// local matches.
type MemoryTransport struct {
	link *memoryLink
	side int
}

// NewMemoryPair creates two connected transports.
func NewMemoryPair(opts LinkOptions) (*MemoryTransport, *MemoryTransport) {
	link := &memoryLink{
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		opts: opts,
	}
	for i := range link.queues {
		link.queues[i] = make(chan []byte, recvQueueSize)
	}
	return &MemoryTransport{link: link, side: 0}, &MemoryTransport{link: link, side: 1}
}

// Send delivers the frame to the other end, subject to the link options.
func (m *MemoryTransport) Send(frame []byte) error {
	l := m.link
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.opts.LossPercent > 0 && l.rng.IntN(100) < l.opts.LossPercent {
		return nil
	}
	copies := 1
	if l.opts.DuplicatePercent > 0 && l.rng.IntN(100) < l.opts.DuplicatePercent {
		copies = 2
	}
	out := l.queues[1-m.side]
	for range copies {
		select {
		case out <- append([]byte(nil), frame...):
		default:
		}
	}
	return nil
}

// Recv returns this end's inbound queue.
func (m *MemoryTransport) Recv() <-chan []byte {
	return m.link.queues[m.side]
}

// Close shuts both ends of the link.
func (m *MemoryTransport) Close() error {
	l := m.link
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for _, q := range l.queues {
		close(q)
	}
	return nil
}

// SetLoss changes the loss percentage of the whole link.
func (m *MemoryTransport) SetLoss(percent int) {
	m.link.mu.Lock()
	m.link.opts.LossPercent = percent
	m.link.mu.Unlock()
}
