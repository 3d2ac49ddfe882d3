package netcode

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vovakirdan/antcraft/internal/protocol"
	"github.com/vovakirdan/antcraft/internal/sim"
)

func matchRules() sim.Rules {
	r := sim.DefaultRules()
	r.MapWidth, r.MapHeight = 40, 24
	return r
}

// moveFirstAnt issues a move for the side's lowest-id ant.
func moveFirstAnt(s *Session, tx, ty int32) {
	view := s.View()
	ants := view.Own(sim.KindAnt)
	if len(ants) == 0 {
		return
	}
	s.Issue(sim.Command{
		Type:     sim.CmdMove,
		Entities: []sim.EntityID{ants[0].ID},
		TargetX:  sim.TileCenter(tx),
		TargetY:  sim.TileCenter(ty),
	})
}

func TestIssueSchedulesAhead(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSession(sim.NewMatch(1, matchRules()), NewLoopback(0), cfg, nil)

	got := s.Issue(sim.Command{Type: sim.CmdStop, Player: 1, Tick: 99})
	if got.Player != 0 {
		t.Errorf("Issue().Player = %v, expected p0", got.Player)
	}
	if got.Tick != cfg.InputDelay {
		t.Errorf("Issue().Tick = %d, expected %d", got.Tick, cfg.InputDelay)
	}
}

func TestLoopbackSessionMatchesDirectRun(t *testing.T) {
	rules := matchRules()
	s := NewSession(sim.NewMatch(5, rules), NewLoopback(0), DefaultConfig(), nil)

	var executed [][]sim.Command
	s.OnAdvance = func(tick uint32, cmds []sim.Command, _ *sim.State) {
		if tick != uint32(len(executed)) {
			t.Fatalf("OnAdvance tick = %d, expected %d", tick, len(executed))
		}
		executed = append(executed, cmds)
	}

	now := time.Now()
	for i := 0; i < 100; i++ {
		if i%20 == 0 {
			moveFirstAnt(s, int32(5+i/10), 12)
		}
		advanced, err := s.Step(now)
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		if !advanced {
			t.Fatalf("Step() at iteration %d did not advance", i)
		}
		now = now.Add(100 * time.Millisecond)
	}
	if s.Tick() != 100 {
		t.Fatalf("Tick() = %d, expected 100", s.Tick())
	}
	if s.Status() != StatusRunning {
		t.Errorf("Status() = %v, expected %v", s.Status(), StatusRunning)
	}

	direct := sim.NewMatch(5, rules)
	issued := 0
	for _, cmds := range executed {
		issued += len(cmds)
		direct.Advance(cmds)
	}
	if issued != 5 {
		t.Errorf("executed %d commands, expected 5", issued)
	}
	if direct.Digest() != s.State().Digest() {
		t.Error("session and direct run diverged")
	}
}

// lockstep drives two sessions against each other until both reach target.
func lockstep(t *testing.T, a, b *Session, pa, pb Peer, target uint32, beforeStep func(i int)) {
	t.Helper()
	now := time.Now()
	for i := 0; i < 50000; i++ {
		if a.Tick() >= target && b.Tick() >= target {
			return
		}
		if beforeStep != nil {
			beforeStep(i)
		}
		for _, side := range []struct {
			s *Session
			p Peer
		}{{a, pa}, {b, pb}} {
			if side.s.Tick() >= target {
				_ = side.p.Poll(now)
				continue
			}
			if _, err := side.s.Step(now); err != nil {
				t.Fatalf("Step() for %v failed at tick %d: %v", side.s.Local(), side.s.Tick(), err)
			}
		}
		now = now.Add(5 * time.Millisecond)
	}
	t.Fatalf("sessions stuck at ticks %d and %d", a.Tick(), b.Tick())
}

func TestSessionsStayInSync(t *testing.T) {
	tests := []struct {
		name string
		opts LinkOptions
	}{
		{name: "clean link", opts: LinkOptions{}},
		{name: "lossy link", opts: LinkOptions{LossPercent: 20, DuplicatePercent: 5, Seed: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			host, joiner := connectPair(t, tt.opts, cfg)
			rules := matchRules()
			a := NewSession(sim.NewMatch(7, rules), host, cfg, nil)
			b := NewSession(sim.NewMatch(7, rules), joiner, cfg, nil)

			lockstep(t, a, b, host, joiner, 200, func(i int) {
				if i%40 == 0 {
					moveFirstAnt(a, 20, int32(4+i%16))
				}
				if i%55 == 0 {
					moveFirstAnt(b, 18, int32(20-i%16))
				}
			})

			if a.Tick() != 200 || b.Tick() != 200 {
				t.Fatalf("ticks = %d and %d, expected 200", a.Tick(), b.Tick())
			}
			if a.State().Digest() != b.State().Digest() {
				t.Error("sessions diverged on a shared command stream")
			}
			if a.Status().Terminal() || b.Status().Terminal() {
				t.Errorf("statuses = %v and %v, expected running", a.Status(), b.Status())
			}
		})
	}
}

func TestSessionDetectsDesync(t *testing.T) {
	cfg := testConfig()
	host, joiner := connectPair(t, LinkOptions{}, cfg)
	rules := matchRules()
	a := NewSession(sim.NewMatch(3, rules), host, cfg, nil)
	b := NewSession(sim.NewMatch(3, rules), joiner, cfg, nil)

	lockstep(t, a, b, host, joiner, 15, nil)
	b.State().Jelly[0]++

	now := time.Now()
	var errA, errB error
	for i := 0; i < 2000 && (errA == nil || errB == nil); i++ {
		if errA == nil {
			_, errA = a.Step(now)
		}
		if errB == nil {
			_, errB = b.Step(now)
		}
		now = now.Add(5 * time.Millisecond)
	}
	for _, tc := range []struct {
		name string
		s    *Session
		err  error
	}{{"host", a, errA}, {"joiner", b, errB}} {
		if !errors.Is(tc.err, ErrDesync) {
			t.Errorf("%s Step() = %v, expected %v", tc.name, tc.err, ErrDesync)
		}
		if tc.s.Status() != StatusDesynced {
			t.Errorf("%s Status() = %v, expected %v", tc.name, tc.s.Status(), StatusDesynced)
		}
		report, ok := tc.s.Desync()
		if !ok {
			t.Fatalf("%s Desync() reported nothing", tc.name)
		}
		if report.Tick != 20 {
			t.Errorf("%s desync tick = %d, expected 20", tc.name, report.Tick)
		}
		if len(report.LocalDump) == 0 {
			t.Errorf("%s desync report has no local dump", tc.name)
		}
	}
}

func TestSessionWaitsThenTimesOut(t *testing.T) {
	cfg := testConfig()
	host, _ := connectPair(t, LinkOptions{}, cfg)
	s := NewSession(sim.NewMatch(1, matchRules()), host, cfg, nil)
	start := time.Now()

	advanced, err := s.Step(start)
	if err != nil || advanced {
		t.Fatalf("Step() = %v, %v, expected a stall without error", advanced, err)
	}
	if s.Phase() != AwaitingCommands {
		t.Errorf("Phase() = %v, expected %v", s.Phase(), AwaitingCommands)
	}
	if s.Status() != StatusRunning {
		t.Errorf("Status() = %v, expected %v", s.Status(), StatusRunning)
	}

	if _, err := s.Step(start.Add(cfg.WarnTimeout + time.Second)); err != nil {
		t.Fatalf("Step() failed: %v", err)
	}
	if s.Status() != StatusWaiting {
		t.Errorf("Status() = %v, expected %v", s.Status(), StatusWaiting)
	}

	_, err = s.Step(start.Add(cfg.DisconnectTimeout + time.Second))
	if !errors.Is(err, ErrPeerTimeout) {
		t.Errorf("Step() = %v, expected %v", err, ErrPeerTimeout)
	}
	if s.Status() != StatusDisconnected {
		t.Errorf("Status() = %v, expected %v", s.Status(), StatusDisconnected)
	}
	if s.Tick() != 0 {
		t.Errorf("Tick() = %d, expected the simulation to stay at 0", s.Tick())
	}
}

func TestSessionPeerQuit(t *testing.T) {
	cfg := testConfig()
	host, joiner := connectPair(t, LinkOptions{}, cfg)
	s := NewSession(sim.NewMatch(1, matchRules()), host, cfg, nil)

	if err := joiner.Disconnect(protocol.ReasonQuit); err != nil {
		t.Fatalf("Disconnect() failed: %v", err)
	}
	_, err := s.Step(time.Now())
	if !errors.Is(err, ErrPeerDisconnected) {
		t.Errorf("Step() = %v, expected %v", err, ErrPeerDisconnected)
	}
	if s.Status() != StatusDisconnected {
		t.Errorf("Status() = %v, expected %v", s.Status(), StatusDisconnected)
	}
}

// oneSided is a match where player 1 owns nothing, so it ends on tick 0.
func oneSided() *sim.State {
	rules := matchRules()
	st := sim.NewWithMap(1, rules, sim.OpenTileMap(20, 20))
	st.Spawn(sim.KindHive, 0, sim.TileCenter(3), sim.TileCenter(3))
	return st
}

func TestSessionFinishes(t *testing.T) {
	cfg := testConfig()
	host, joiner := connectPair(t, LinkOptions{}, cfg)
	a := NewSession(oneSided(), host, cfg, nil)
	b := NewSession(oneSided(), joiner, cfg, nil)

	now := time.Now()
	for i := 0; i < 1000 && !(a.Status().Terminal() && b.Status().Terminal()); i++ {
		for _, s := range []*Session{a, b} {
			if _, err := s.Step(now); err != nil {
				t.Fatalf("Step() for %v failed: %v", s.Local(), err)
			}
		}
		now = now.Add(5 * time.Millisecond)
	}
	for _, s := range []*Session{a, b} {
		if s.Status() != StatusFinished {
			t.Errorf("%v Status() = %v, expected %v", s.Local(), s.Status(), StatusFinished)
		}
		if st := s.State(); !st.GameOver || st.Winner != 0 {
			t.Errorf("%v GameOver = %v, Winner = %v, expected p0 to win", s.Local(), st.GameOver, st.Winner)
		}
	}
}

func TestSessionFinishesOnLossyLink(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			cfg := testConfig()
			host, joiner := connectPair(t, LinkOptions{LossPercent: 30, Seed: seed}, cfg)
			a := NewSession(oneSided(), host, cfg, nil)
			b := NewSession(oneSided(), joiner, cfg, nil)

			now := time.Now()
			for i := 0; i < 4000 && !(a.Status().Terminal() && b.Status().Terminal()); i++ {
				for _, s := range []*Session{a, b} {
					if _, err := s.Step(now); err != nil {
						t.Fatalf("Step() for %v failed at tick %d: %v", s.Local(), s.Tick(), err)
					}
				}
				now = now.Add(5 * time.Millisecond)
			}
			for _, s := range []*Session{a, b} {
				if s.Status() != StatusFinished {
					t.Errorf("%v Status() = %v at tick %d, expected %v", s.Local(), s.Status(), s.Tick(), StatusFinished)
				}
			}
		})
	}
}

func TestSessionPlaysOutInputAfterQuit(t *testing.T) {
	cfg := testConfig()
	host, joiner := connectPair(t, LinkOptions{}, cfg)
	s := NewSession(sim.NewMatch(1, matchRules()), host, cfg, nil)

	for tick := uint32(0); tick < 3; tick++ {
		if err := joiner.SendCommands(tick, nil); err != nil {
			t.Fatalf("SendCommands() failed: %v", err)
		}
	}
	if err := joiner.Disconnect(protocol.ReasonQuit); err != nil {
		t.Fatalf("Disconnect() failed: %v", err)
	}

	now := time.Now()
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		_, err = s.Step(now)
		now = now.Add(5 * time.Millisecond)
	}
	if !errors.Is(err, ErrPeerDisconnected) {
		t.Errorf("Step() = %v, expected %v", err, ErrPeerDisconnected)
	}
	if s.Tick() != 3 {
		t.Errorf("Tick() = %d, expected the 3 received ticks to run", s.Tick())
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusRunning, false},
		{StatusWaiting, false},
		{StatusDisconnected, true},
		{StatusDesynced, true},
		{StatusFinished, true},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.expected {
				t.Errorf("Terminal() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
