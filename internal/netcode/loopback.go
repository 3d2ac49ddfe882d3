package netcode

import (
	"time"

	"github.com/vovakirdan/antcraft/internal/protocol"
	"github.com/vovakirdan/antcraft/internal/sim"
)

// Loopback is a stand-in opponent: it answers every tick with the empty
// marker and echoes every digest back, so a single process can drive a
// Session without a network.
type Loopback struct {
	local     sim.PlayerID
	hashes    map[uint32]sim.Digest
	lastHeard time.Time
	closed    bool
	reason    protocol.Reason
}

// NewLoopback creates a loopback peer for the given local slot.
func NewLoopback(local sim.PlayerID) *Loopback {
	return &Loopback{local: local, hashes: make(map[uint32]sim.Digest)}
}

func (l *Loopback) Local() sim.PlayerID { return l.local }

func (l *Loopback) Poll(now time.Time) error {
	l.lastHeard = now
	return nil
}

func (l *Loopback) SendCommands(uint32, []sim.Command) error { return nil }

func (l *Loopback) ReceiveCommands(uint32) ([]sim.Command, bool) { return nil, true }

func (l *Loopback) SendHash(tick uint32, d sim.Digest) error {
	l.hashes[tick] = d
	return nil
}

func (l *Loopback) ReceiveHash(tick uint32) (sim.Digest, bool) {
	d, ok := l.hashes[tick]
	delete(l.hashes, tick)
	return d, ok
}

func (l *Loopback) SendDesync(uint32, sim.Digest, []byte) error { return nil }

func (l *Loopback) PeerDesync() (protocol.Desync, bool) { return protocol.Desync{}, false }

func (l *Loopback) LastHeard() time.Time { return l.lastHeard }

func (l *Loopback) Drained() bool { return true }

func (l *Loopback) Closed() (protocol.Reason, bool) { return l.reason, l.closed }

func (l *Loopback) Disconnect(reason protocol.Reason) error {
	l.closed, l.reason = true, reason
	return nil
}
