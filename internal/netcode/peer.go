package netcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/antcraft/internal/protocol"
	"github.com/vovakirdan/antcraft/internal/sim"
)

var (
	// ErrConnectTimeout means the host never answered CONNECT.
	ErrConnectTimeout = errors.New("netcode: connect timed out")
	// ErrRulesMismatch means the peers run different rules or protocol versions.
	ErrRulesMismatch = errors.New("netcode: rules mismatch")
	// ErrPeerDisconnected means the peer sent DISCONNECT.
	ErrPeerDisconnected = errors.New("netcode: peer disconnected")
)

// Peer is the lockstep session's view of the other player. ReceiveCommands
// distinguishes "not arrived" (false) from the empty marker (nil, true).
type Peer interface {
	Local() sim.PlayerID
	Poll(now time.Time) error
	SendCommands(tick uint32, cmds []sim.Command) error
	ReceiveCommands(tick uint32) ([]sim.Command, bool)
	SendHash(tick uint32, d sim.Digest) error
	ReceiveHash(tick uint32) (sim.Digest, bool)
	SendDesync(tick uint32, d sim.Digest, dump []byte) error
	// PeerDesync returns the peer's DESYNC report, if one arrived.
	PeerDesync() (protocol.Desync, bool)
	LastHeard() time.Time
	// Closed reports whether the peer ended the match and why.
	Closed() (protocol.Reason, bool)
	// Drained reports whether the peer acknowledged every command sent.
	Drained() bool
	Disconnect(reason protocol.Reason) error
}

// HostParams are the match parameters a host offers.
type HostParams struct {
	Seed        uint32
	TickRate    uint32
	Fingerprint uint32
}

// JoinParams describe the joiner.
type JoinParams struct {
	Name        string
	Fingerprint uint32
}

// NetPeer is a Peer over a real or in-memory transport.
type NetPeer struct {
	cfg    Config
	log    *log.Logger
	ch     *Channel
	local  sim.PlayerID
	remote sim.PlayerID
	name   string

	// Inbound lockstep state.
	cmds      map[uint32][]sim.Command
	contig    uint32 // every peer tick below this has arrived
	arrived   map[uint32]bool
	hashes    map[uint32]sim.Digest
	desync    *protocol.Desync
	closed    bool
	reason    protocol.Reason
	lastHeard time.Time
	now       time.Time // time of the latest Poll

	// Outbound commands kept until the peer acknowledges them.
	sent       map[uint32][]sim.Command
	sentMax    uint32
	hasSent    bool
	peerAck    uint32
	lastResend time.Time
	lastAcked  uint32
	lastAckAt  time.Time
}

func newNetPeer(ch *Channel, cfg Config, logger *log.Logger, local sim.PlayerID, now time.Time) *NetPeer {
	return &NetPeer{
		cfg:       cfg,
		log:       logger,
		ch:        ch,
		local:     local,
		remote:    1 - local,
		cmds:      make(map[uint32][]sim.Command),
		arrived:   make(map[uint32]bool),
		hashes:    make(map[uint32]sim.Digest),
		sent:      make(map[uint32][]sim.Command),
		lastHeard: now,
		now:       now,
	}
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}

// Host waits for a joiner on t, checks its fingerprint and answers with the
// match parameters. The host plays slot 0. It waits until ctx is done.
func Host(ctx context.Context, t Transport, params HostParams, cfg Config, logger *log.Logger) (*NetPeer, error) {
	logger = orDiscard(logger)
	ch := NewChannel(t, cfg)
	ticker := time.NewTicker(cfg.ResendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if err := ch.Flush(time.Now()); err != nil && !errors.Is(err, ErrNoPeer) {
				return nil, err
			}
		case frame, ok := <-ch.Recv():
			if !ok {
				return nil, ErrClosed
			}
			msg, err := ch.Receive(frame)
			if err != nil {
				logger.Debug("dropping frame", "err", err)
				continue
			}
			hello, ok := msg.(protocol.Connect)
			if !ok {
				continue
			}
			if hello.Version != protocol.Version || hello.Fingerprint != params.Fingerprint {
				logger.Warn("refusing joiner", "name", hello.Name,
					"version", hello.Version, "fingerprint", fmt.Sprintf("%08x", hello.Fingerprint),
					"want", fmt.Sprintf("%08x", params.Fingerprint))
				_ = ch.SendFinal(protocol.Disconnect{Reason: protocol.ReasonRulesMismatch})
				return nil, ErrRulesMismatch
			}
			now := time.Now()
			if err := ch.Send(protocol.ConnectAck{Seed: params.Seed, TickRate: params.TickRate, Player: 1}, now); err != nil {
				return nil, err
			}
			p := newNetPeer(ch, cfg, logger, 0, now)
			p.name = hello.Name
			logger.Info("peer joined", "name", hello.Name)
			return p, nil
		}
	}
}

// Join sends CONNECT until the host answers or the connect timeout passes.
func Join(ctx context.Context, t Transport, params JoinParams, cfg Config, logger *log.Logger) (*NetPeer, protocol.ConnectAck, error) {
	logger = orDiscard(logger)
	ch := NewChannel(t, cfg)
	ch.SetResendInterval(cfg.ConnectRetry)
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	hello := protocol.Connect{Version: protocol.Version, Fingerprint: params.Fingerprint, Name: params.Name}
	if err := ch.Send(hello, time.Now()); err != nil {
		return nil, protocol.ConnectAck{}, err
	}
	ticker := time.NewTicker(min(cfg.ConnectRetry, cfg.ResendInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, protocol.ConnectAck{}, ErrConnectTimeout
			}
			return nil, protocol.ConnectAck{}, ctx.Err()
		case <-ticker.C:
			if err := ch.Flush(time.Now()); err != nil {
				return nil, protocol.ConnectAck{}, err
			}
		case frame, ok := <-ch.Recv():
			if !ok {
				return nil, protocol.ConnectAck{}, ErrClosed
			}
			msg, err := ch.Receive(frame)
			if err != nil {
				logger.Debug("dropping frame", "err", err)
				continue
			}
			switch m := msg.(type) {
			case protocol.ConnectAck:
				ch.SetResendInterval(cfg.ResendInterval)
				p := newNetPeer(ch, cfg, logger, sim.PlayerID(m.Player), time.Now())
				logger.Info("joined match", "seed", m.Seed, "tick_rate", m.TickRate, "player", m.Player)
				return p, m, nil
			case protocol.Disconnect:
				if m.Reason == protocol.ReasonRulesMismatch {
					return nil, protocol.ConnectAck{}, ErrRulesMismatch
				}
				return nil, protocol.ConnectAck{}, fmt.Errorf("%w: %s", ErrPeerDisconnected, m.Reason)
			}
		}
	}
}

// Local returns this side's player slot.
func (p *NetPeer) Local() sim.PlayerID { return p.local }

// Name returns the joiner's name as sent in CONNECT (host side only).
func (p *NetPeer) Name() string { return p.name }

// LastHeard returns when the last valid frame arrived.
func (p *NetPeer) LastHeard() time.Time { return p.lastHeard }

// Poll drains the transport, resends what is unacknowledged and
// re-announces how far the peer's commands have arrived.
func (p *NetPeer) Poll(now time.Time) error {
	// After a game-over DISCONNECT the peer's trailing commands may still
	// be on the wire.
	if p.closed && p.reason != protocol.ReasonGameOver {
		return nil
	}
	p.now = now
drain:
	for {
		select {
		case frame, ok := <-p.ch.Recv():
			if !ok {
				if !p.closed {
					p.closed = true
					p.reason = protocol.ReasonQuit
				}
				return nil
			}
			p.handle(frame, now)
		default:
			break drain
		}
	}
	if p.closed {
		return nil
	}

	if err := p.ch.Flush(now); err != nil {
		return err
	}
	if now.Sub(p.lastResend) >= p.cfg.ResendInterval {
		p.lastResend = now
		if err := p.resendCommands(); err != nil {
			return err
		}
	}
	if p.contig != p.lastAcked || now.Sub(p.lastAckAt) >= p.cfg.ResendInterval {
		p.lastAcked = p.contig
		p.lastAckAt = now
		if err := p.ch.Send(protocol.TickAck{Tick: p.contig}, now); err != nil {
			return err
		}
	}
	return nil
}

func (p *NetPeer) handle(frame []byte, now time.Time) {
	msg, err := p.ch.Receive(frame)
	if err != nil {
		p.log.Debug("dropping frame", "err", err)
		return
	}
	p.lastHeard = now
	switch m := msg.(type) {
	case nil:
	case protocol.Commands:
		if sim.PlayerID(m.Player) != p.remote || m.Tick < p.contig || p.arrived[m.Tick] {
			return
		}
		var cmds []sim.Command
		for _, c := range m.Commands {
			if c.Tick == m.Tick && c.Player == p.remote {
				cmds = append(cmds, c)
			}
		}
		p.cmds[m.Tick] = cmds
		p.arrived[m.Tick] = true
		for p.arrived[p.contig] {
			delete(p.arrived, p.contig)
			p.contig++
		}
	case protocol.TickAck:
		if m.Tick > p.peerAck {
			for tick := p.peerAck; tick < m.Tick; tick++ {
				delete(p.sent, tick)
			}
			p.peerAck = m.Tick
		}
	case protocol.HashCheck:
		p.hashes[m.Tick] = m.Digest
	case protocol.Desync:
		d := m
		p.desync = &d
		p.closed = true
		p.reason = protocol.ReasonDesync
	case protocol.Disconnect:
		p.closed = true
		p.reason = m.Reason
	case protocol.ConnectAck:
		// Late duplicate of the handshake.
	case protocol.Connect:
	default:
		p.log.Debug("unexpected message", "type", msg.Type())
	}
}

func (p *NetPeer) resendCommands() error {
	if !p.hasSent {
		return nil
	}
	for tick := p.peerAck; tick <= p.sentMax; tick++ {
		cmds, ok := p.sent[tick]
		if !ok {
			continue
		}
		msg := protocol.Commands{Tick: tick, Player: uint8(p.local), Commands: cmds}
		if err := p.ch.Send(msg, time.Time{}); err != nil {
			return err
		}
	}
	return nil
}

// SendCommands transmits this side's complete input for tick.
func (p *NetPeer) SendCommands(tick uint32, cmds []sim.Command) error {
	p.sent[tick] = cmds
	if !p.hasSent || tick > p.sentMax {
		p.sentMax = tick
		p.hasSent = true
	}
	return p.ch.Send(protocol.Commands{Tick: tick, Player: uint8(p.local), Commands: cmds}, time.Time{})
}

// ReceiveCommands hands out the peer's input for tick once it has arrived.
func (p *NetPeer) ReceiveCommands(tick uint32) ([]sim.Command, bool) {
	cmds, ok := p.cmds[tick]
	if !ok {
		return nil, false
	}
	delete(p.cmds, tick)
	return cmds, true
}

// SendHash sends this side's digest for tick.
func (p *NetPeer) SendHash(tick uint32, d sim.Digest) error {
	return p.ch.Send(protocol.HashCheck{Tick: tick, Digest: d}, p.now)
}

// ReceiveHash returns and forgets the peer's digest for tick.
func (p *NetPeer) ReceiveHash(tick uint32) (sim.Digest, bool) {
	d, ok := p.hashes[tick]
	if ok {
		delete(p.hashes, tick)
	}
	return d, ok
}

// SendDesync reports a mismatch with a compressed dump of the local state.
func (p *NetPeer) SendDesync(tick uint32, d sim.Digest, dump []byte) error {
	return p.ch.SendFinal(protocol.NewDesync(tick, d, dump))
}

// PeerDesync returns the peer's DESYNC report.
func (p *NetPeer) PeerDesync() (protocol.Desync, bool) {
	if p.desync == nil {
		return protocol.Desync{}, false
	}
	return *p.desync, true
}

// Drained reports whether the peer's TICK_ACK covers every sent tick.
func (p *NetPeer) Drained() bool {
	return !p.hasSent || p.peerAck > p.sentMax
}

// Closed reports whether the peer ended the match.
func (p *NetPeer) Closed() (protocol.Reason, bool) {
	return p.reason, p.closed
}

// Disconnect tells the peer the match is over and closes the transport.
func (p *NetPeer) Disconnect(reason protocol.Reason) error {
	err := p.ch.SendFinal(protocol.Disconnect{Reason: reason})
	if cerr := p.ch.Close(); err == nil {
		err = cerr
	}
	if !p.closed {
		p.closed = true
		p.reason = reason
	}
	return err
}
