package netcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/antcraft/internal/protocol"
	"github.com/vovakirdan/antcraft/internal/sim"
)

type hostResult struct {
	peer *NetPeer
	err  error
}

// connectPair runs the handshake over an in-memory link.
func connectPair(t *testing.T, opts LinkOptions, cfg Config) (*NetPeer, *NetPeer) {
	t.Helper()
	th, tj := NewMemoryPair(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan hostResult, 1)
	joined := make(chan struct{})
	go func() {
		p, err := Host(ctx, th, HostParams{Seed: 7, TickRate: 10, Fingerprint: 0xabcd}, cfg, nil)
		if err != nil {
			done <- hostResult{nil, err}
			return
		}
		// Keep repeating CONNECT_ACK until the joiner has it.
		for {
			select {
			case <-joined:
				done <- hostResult{p, nil}
				return
			default:
				_ = p.Poll(time.Now())
				time.Sleep(time.Millisecond)
			}
		}
	}()
	joiner, ack, err := Join(ctx, tj, JoinParams{Name: "bob", Fingerprint: 0xabcd}, cfg, nil)
	close(joined)
	if err != nil {
		t.Fatalf("Join() failed: %v", err)
	}
	res := <-done
	if res.err != nil {
		t.Fatalf("Host() failed: %v", res.err)
	}
	if ack.Seed != 7 || ack.TickRate != 10 || ack.Player != 1 {
		t.Fatalf("ConnectAck = %+v, expected seed 7, tick rate 10, player 1", ack)
	}
	return res.peer, joiner
}

func TestHandshake(t *testing.T) {
	host, joiner := connectPair(t, LinkOptions{}, testConfig())
	if host.Local() != 0 {
		t.Errorf("host Local() = %v, expected p0", host.Local())
	}
	if joiner.Local() != 1 {
		t.Errorf("joiner Local() = %v, expected p1", joiner.Local())
	}
	if host.Name() != "bob" {
		t.Errorf("host Name() = %q, expected %q", host.Name(), "bob")
	}
}

func TestHandshakeLossy(t *testing.T) {
	host, joiner := connectPair(t, LinkOptions{LossPercent: 30, Seed: 3}, testConfig())
	if host.Local() == joiner.Local() {
		t.Errorf("both peers play %v", host.Local())
	}
}

func TestHandshakeRulesMismatch(t *testing.T) {
	cfg := testConfig()
	th, tj := NewMemoryPair(LinkOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := Host(ctx, th, HostParams{Fingerprint: 1}, cfg, nil)
		done <- err
	}()
	_, _, err := Join(ctx, tj, JoinParams{Name: "eve", Fingerprint: 2}, cfg, nil)
	if !errors.Is(err, ErrRulesMismatch) {
		t.Errorf("Join() = %v, expected %v", err, ErrRulesMismatch)
	}
	if err := <-done; !errors.Is(err, ErrRulesMismatch) {
		t.Errorf("Host() = %v, expected %v", err, ErrRulesMismatch)
	}
}

func TestJoinTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectTimeout = 50 * time.Millisecond
	_, tj := NewMemoryPair(LinkOptions{})

	_, _, err := Join(context.Background(), tj, JoinParams{Name: "lonely"}, cfg, nil)
	if !errors.Is(err, ErrConnectTimeout) {
		t.Errorf("Join() = %v, expected %v", err, ErrConnectTimeout)
	}
}

func TestPeerCommandsExactlyOnce(t *testing.T) {
	host, joiner := connectPair(t, LinkOptions{DuplicatePercent: 100, Seed: 1}, testConfig())
	now := time.Now()

	cmd := sim.Command{Type: sim.CmdStop, Player: 0, Tick: 0, Entities: []sim.EntityID{4}}
	if err := host.SendCommands(0, []sim.Command{cmd}); err != nil {
		t.Fatalf("SendCommands() failed: %v", err)
	}
	if err := host.SendCommands(1, nil); err != nil {
		t.Fatalf("SendCommands() failed: %v", err)
	}
	if err := joiner.Poll(now); err != nil {
		t.Fatalf("Poll() failed: %v", err)
	}

	got, ok := joiner.ReceiveCommands(0)
	if !ok || len(got) != 1 || got[0].Type != sim.CmdStop {
		t.Fatalf("ReceiveCommands(0) = %v, %v, expected the stop command", got, ok)
	}
	if _, ok := joiner.ReceiveCommands(0); ok {
		t.Error("ReceiveCommands(0) delivered twice")
	}
	got, ok = joiner.ReceiveCommands(1)
	if !ok || len(got) != 0 {
		t.Errorf("ReceiveCommands(1) = %v, %v, expected the empty marker", got, ok)
	}
	if _, ok := joiner.ReceiveCommands(2); ok {
		t.Error("ReceiveCommands(2) reported a tick that was never sent")
	}
}

func TestPeerDropsForeignCommands(t *testing.T) {
	host, joiner := connectPair(t, LinkOptions{}, testConfig())

	// A command claiming the joiner's own slot must not be accepted.
	forged := sim.Command{Type: sim.CmdStop, Player: 1, Tick: 0, Entities: []sim.EntityID{4}}
	if err := host.SendCommands(0, []sim.Command{forged}); err != nil {
		t.Fatalf("SendCommands() failed: %v", err)
	}
	if err := joiner.Poll(time.Now()); err != nil {
		t.Fatalf("Poll() failed: %v", err)
	}
	got, ok := joiner.ReceiveCommands(0)
	if !ok || len(got) != 0 {
		t.Errorf("ReceiveCommands(0) = %v, %v, expected an empty frame", got, ok)
	}
}

func TestPeerTickAckPrunes(t *testing.T) {
	host, joiner := connectPair(t, LinkOptions{}, testConfig())
	now := time.Now()

	for tick := uint32(0); tick < 3; tick++ {
		if err := host.SendCommands(tick, nil); err != nil {
			t.Fatalf("SendCommands() failed: %v", err)
		}
	}
	if err := joiner.Poll(now); err != nil {
		t.Fatalf("Poll() failed: %v", err)
	}
	if joiner.contig != 3 {
		t.Fatalf("joiner contig = %d, expected 3", joiner.contig)
	}
	if err := host.Poll(now); err != nil {
		t.Fatalf("Poll() failed: %v", err)
	}
	if len(host.sent) != 0 {
		t.Errorf("host still holds %d unacknowledged ticks, expected 0", len(host.sent))
	}
}

func TestPeerHashAndDisconnect(t *testing.T) {
	host, joiner := connectPair(t, LinkOptions{}, testConfig())
	now := time.Now()
	d := sim.Digest{1, 2, 3}

	if err := host.SendHash(10, d); err != nil {
		t.Fatalf("SendHash() failed: %v", err)
	}
	if err := joiner.Poll(now); err != nil {
		t.Fatalf("Poll() failed: %v", err)
	}
	got, ok := joiner.ReceiveHash(10)
	if !ok || got != d {
		t.Errorf("ReceiveHash(10) = %v, %v, expected %v", got, ok, d)
	}

	if err := host.Disconnect(protocol.ReasonQuit); err != nil {
		t.Fatalf("Disconnect() failed: %v", err)
	}
	if err := joiner.Poll(now); err != nil {
		t.Fatalf("Poll() failed: %v", err)
	}
	reason, closed := joiner.Closed()
	if !closed || reason != protocol.ReasonQuit {
		t.Errorf("Closed() = %v, %v, expected quit, true", reason, closed)
	}
}
