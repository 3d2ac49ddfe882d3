package netcode

import (
	"fmt"
	"slices"
	"time"

	"github.com/vovakirdan/antcraft/internal/protocol"
)

type outgoing struct {
	frame    []byte
	msgType  protocol.MessageType
	lastSent time.Time
}

// Channel frames messages onto a Transport. Reliable message types are kept
// until the peer ACKs their sequence number and resent every resend
// interval; unreliable ones are sent several times and forgotten.
type Channel struct {
	t          Transport
	redundancy int
	resend     time.Duration

	nextSeq uint32
	outbox  map[uint32]*outgoing
	seen    map[uint32]struct{}
}

// NewChannel wraps a transport.
func NewChannel(t Transport, cfg Config) *Channel {
	return &Channel{
		t:          t,
		redundancy: cfg.redundancy(),
		resend:     cfg.ResendInterval,
		nextSeq:    1,
		outbox:     make(map[uint32]*outgoing),
		seen:       make(map[uint32]struct{}),
	}
}

// SetResendInterval changes how often unacknowledged frames are repeated.
func (c *Channel) SetResendInterval(d time.Duration) {
	c.resend = d
}

func (c *Channel) frame(msg protocol.Message) (uint32, []byte, error) {
	seq := c.nextSeq
	c.nextSeq++
	frame, err := protocol.Encode(seq, msg)
	if err != nil {
		return 0, nil, err
	}
	return seq, frame, nil
}

// Send transmits msg. Reliable messages enter the outbox.
func (c *Channel) Send(msg protocol.Message, now time.Time) error {
	seq, frame, err := c.frame(msg)
	if err != nil {
		return err
	}
	if msg.Type().Reliable() {
		c.outbox[seq] = &outgoing{frame: frame, msgType: msg.Type(), lastSent: now}
		return c.t.Send(frame)
	}
	return c.burst(frame)
}

// SendFinal transmits msg redundantly without tracking it, for the last
// frames before the transport closes.
func (c *Channel) SendFinal(msg protocol.Message) error {
	_, frame, err := c.frame(msg)
	if err != nil {
		return err
	}
	return c.burst(frame)
}

func (c *Channel) burst(frame []byte) error {
	var first error
	for range c.redundancy {
		if err := c.t.Send(frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Flush resends every reliable frame whose resend interval elapsed, in
// sequence order.
func (c *Channel) Flush(now time.Time) error {
	if len(c.outbox) == 0 {
		return nil
	}
	seqs := make([]uint32, 0, len(c.outbox))
	for seq := range c.outbox {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	for _, seq := range seqs {
		o := c.outbox[seq]
		if now.Sub(o.lastSent) < c.resend {
			continue
		}
		o.lastSent = now
		if err := c.t.Send(o.frame); err != nil {
			return err
		}
	}
	return nil
}

// Receive decodes a frame. It answers reliable frames with an ACK, consumes
// ACKs, and filters reliable duplicates; in those cases msg is nil.
func (c *Channel) Receive(frame []byte) (protocol.Message, error) {
	h, msg, err := protocol.Decode(frame)
	if err != nil {
		return nil, err
	}
	if ack, ok := msg.(protocol.Ack); ok {
		delete(c.outbox, ack.Seq)
		return nil, nil
	}
	if h.Flags&protocol.FlagReliable != 0 {
		ackFrame, err := protocol.Encode(0, protocol.Ack{Seq: h.Seq})
		if err != nil {
			return nil, fmt.Errorf("netcode: cannot encode ack: %w", err)
		}
		// A lost ACK only costs a resend, so a failed send still delivers.
		_ = c.t.Send(ackFrame)
		if _, dup := c.seen[h.Seq]; dup {
			return nil, nil
		}
		c.seen[h.Seq] = struct{}{}
	}
	return msg, nil
}

// Pending returns the number of unacknowledged reliable frames.
func (c *Channel) Pending() int {
	return len(c.outbox)
}

// Recv exposes the transport's inbound queue.
func (c *Channel) Recv() <-chan []byte {
	return c.t.Recv()
}

// Close closes the transport.
func (c *Channel) Close() error {
	return c.t.Close()
}
