package sim

import (
	"encoding/json"
	"testing"
)

// scripted produces a busy but deterministic command mix from the state.
func scripted(s *State) []Command {
	tick := s.Tick
	var cmds []Command
	for p := range Players {
		player := PlayerID(p)
		var ants []EntityID
		var hive EntityID
		for _, e := range s.Entities.All() {
			switch {
			case e.Owner == player && e.Kind == KindAnt:
				ants = append(ants, e.ID)
			case e.Owner == player && e.Kind == KindHive && hive == NoEntity:
				hive = e.ID
			}
		}
		switch (tick + uint32(p)*7) % 40 {
		case 3:
			if len(ants) > 0 {
				x := TileCenter(int32(s.Rng.State%uint32(s.Map.Width-2)) + 1)
				cmds = append(cmds, Command{Type: CmdMove, Player: player, Tick: tick, Entities: ants, TargetX: x, TargetY: TileCenter(s.Map.Height / 2)})
			}
		case 17:
			if hive != NoEntity {
				cmds = append(cmds, Command{Type: CmdSpawnAnt, Player: player, Tick: tick, Target: hive})
			}
		case 29:
			if len(ants) > 1 {
				cmds = append(cmds, Command{Type: CmdStop, Player: player, Tick: tick, Entities: ants[:1]})
			}
		}
	}
	return cmds
}

func TestDeterministicReplay(t *testing.T) {
	rules := DefaultRules()
	const seed, ticks = 20240601, 500

	a := NewMatch(seed, rules)
	log := make([][]Command, 0, ticks)
	var digests []Digest
	for range ticks {
		cmds := scripted(a)
		log = append(log, cmds)
		a.Advance(cmds)
		if a.Tick%10 == 0 {
			digests = append(digests, a.Digest())
		}
	}

	b := NewMatch(seed, rules)
	checkpoint := 0
	for i := range ticks {
		// Reverse the order to prove Advance sorts.
		cmds := log[i]
		rev := make([]Command, len(cmds))
		for j, c := range cmds {
			rev[len(cmds)-1-j] = c
		}
		b.Advance(rev)
		if b.Tick%10 == 0 {
			if got := b.Digest(); got != digests[checkpoint] {
				t.Fatalf("digest mismatch at tick %d: %s vs %s", b.Tick, got.Short(), digests[checkpoint].Short())
			}
			checkpoint++
		}
	}
	if checkpoint != ticks/10 {
		t.Errorf("compared %d checkpoints, expected %d", checkpoint, ticks/10)
	}
}

func TestNewMatchSetup(t *testing.T) {
	rules := DefaultRules()
	s := NewMatch(7, rules)

	counts := map[Kind]int{}
	for _, e := range s.Entities.All() {
		counts[e.Kind]++
	}
	if counts[KindHive] != Players {
		t.Errorf("hives = %d, expected %d", counts[KindHive], Players)
	}
	if counts[KindAnt] != Players*int(rules.Balance.StartingAnts) {
		t.Errorf("ants = %d, expected %d", counts[KindAnt], Players*int(rules.Balance.StartingAnts))
	}
	if counts[KindHiveSite] != len(s.Map.Sites) {
		t.Errorf("hive sites = %d, expected %d", counts[KindHiveSite], len(s.Map.Sites))
	}
	prev := NoEntity
	for _, e := range s.Entities.All() {
		if e.ID <= prev {
			t.Fatalf("entity ids not ascending: %d after %d", e.ID, prev)
		}
		prev = e.ID
	}
	start := s.Map.Starts[0]
	if !s.Vis[0].IsVisible(start.X, start.Y) {
		t.Error("visibility not computed before the first tick")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewMatch(11, DefaultRules())
	c := s.Clone()
	if c.Digest() != s.Digest() {
		t.Fatal("Clone() digest differs")
	}
	c.Entities.All()[0].HP--
	c.Vis[0].Cells[0] = Visible
	c.Jelly[1]++
	if s.Entities.All()[0].HP == c.Entities.All()[0].HP {
		t.Error("clone shares entities")
	}
	if s.Digest() == c.Digest() {
		t.Error("digest did not change with the clone")
	}

	s2 := NewMatch(11, DefaultRules())
	for range 30 {
		s.Advance(nil)
		s2.Advance(nil)
	}
	if s.Digest() != s2.Digest() {
		t.Error("mutating a clone changed the original")
	}
}

func TestDigestCoversFields(t *testing.T) {
	base := NewMatch(5, DefaultRules())
	ref := base.Digest()
	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{"tick", func(s *State) { s.Tick++ }},
		{"rng", func(s *State) { s.Rng.Next(10) }},
		{"jelly", func(s *State) { s.Jelly[0]++ }},
		{"entity position", func(s *State) { s.Entities.All()[1].X++ }},
		{"entity path", func(s *State) { s.Entities.All()[1].Path = []Point{{1, 1}} }},
		{"entity cooldown", func(s *State) { s.Entities.All()[0].Cooldown = 3 }},
		{"winner", func(s *State) { s.Winner = 1 }},
		{"visibility", func(s *State) { s.Vis[1].Cells[0] = Fogged }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := base.Clone()
			tc.mutate(s)
			if s.Digest() == ref {
				t.Errorf("digest ignores %s", tc.name)
			}
		})
	}
}

func TestDumpIsJSON(t *testing.T) {
	s := NewMatch(3, DefaultRules())
	var out map[string]any
	if err := json.Unmarshal(s.Dump(), &out); err != nil {
		t.Fatalf("Dump() is not JSON: %v", err)
	}
	if out["digest"] != s.Digest().String() {
		t.Errorf("dump digest = %v, expected %s", out["digest"], s.Digest())
	}
}

func TestRulesFingerprint(t *testing.T) {
	a := DefaultRules()
	b := DefaultRules()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("Fingerprint() differs for equal rules")
	}
	b.Balance.Mantis.Damage++
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Fingerprint() ignores balance changes")
	}
}
