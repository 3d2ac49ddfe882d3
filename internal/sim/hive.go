package sim

// Spawn ring around a hive: N, NE, E, SE, S, SW, W, NW.
var spawnDirs = [8]Point{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// economy runs passive income, pending spawns, founding and the win check,
// in that order.
func (s *State) economy() {
	s.passiveIncome()
	s.tickSpawns()
	s.checkFounding()
	s.checkWin()
}

func (s *State) passiveIncome() {
	income := s.rate(s.Rules.Balance.HivePassiveIncome)
	if income <= 0 {
		return
	}
	for _, e := range s.Entities.All() {
		if e.Kind == KindHive {
			s.credit(e.Owner, income)
		}
	}
}

func (s *State) tickSpawns() {
	type pending struct {
		owner PlayerID
		x, y  int32
	}
	var spawns []pending
	for _, e := range s.Entities.All() {
		if e.Kind != KindHive || e.Cooldown <= 0 {
			continue
		}
		e.Cooldown--
		if e.Cooldown == 0 {
			spawns = append(spawns, pending{e.Owner, e.X, e.Y})
		}
	}
	for _, p := range spawns {
		x, y := s.spawnPoint(p.x, p.y)
		s.Spawn(KindAnt, p.owner, x, y)
	}
}

// spawnPoint picks the first walkable tile of the ring around (hx, hy),
// starting at a random direction. It falls back to the hive itself.
func (s *State) spawnPoint(hx, hy int32) (int32, int32) {
	start := s.Rng.Next(uint32(len(spawnDirs)))
	for i := range uint32(len(spawnDirs)) {
		d := spawnDirs[(start+i)%uint32(len(spawnDirs))]
		x, y := hx+d.X*MilliPerTile, hy+d.Y*MilliPerTile
		if s.Map.WalkableAt(x, y) {
			return x, y
		}
	}
	return hx, hy
}

// checkFounding converts every hive site reached by a founding queen into a
// hive of the queen's owner. Lower queen ids claim contested sites first.
func (s *State) checkFounding() {
	r2 := rangeSq(s.Rules.Balance.FoundHiveRange)
	var sites []*Entity
	for _, e := range s.Entities.All() {
		if e.Kind == KindHiveSite {
			sites = append(sites, e)
		}
	}
	if len(sites) == 0 {
		return
	}

	type claim struct {
		queen, site EntityID
		owner       PlayerID
		x, y        int32
	}
	var claims []claim
	taken := make([]bool, len(sites))
	for _, q := range s.Entities.All() {
		if q.Kind != KindQueen || q.Behavior != Founding {
			continue
		}
		for i, site := range sites {
			if taken[i] || distSq(q.X, q.Y, site.X, site.Y) > r2 {
				continue
			}
			taken[i] = true
			claims = append(claims, claim{q.ID, site.ID, q.Owner, site.X, site.Y})
			break
		}
	}
	for _, c := range claims {
		s.Entities.remove(c.queen)
		s.Entities.remove(c.site)
		s.Spawn(KindHive, c.owner, c.x, c.y)
	}
}

// checkWin eliminates players without hives. The match ends when at most one
// player still has hives; losing every hive at once is a draw.
func (s *State) checkWin() {
	if s.GameOver {
		return
	}
	var hives [Players]int
	for _, e := range s.Entities.All() {
		if e.Kind == KindHive && e.Owner.Valid() {
			hives[e.Owner]++
		}
	}
	var alive []PlayerID
	eliminated := 0
	for p := range Players {
		if hives[p] == 0 {
			eliminated++
		} else {
			alive = append(alive, PlayerID(p))
		}
	}
	switch {
	case eliminated > 0 && len(alive) == 1:
		s.GameOver = true
		s.Winner = alive[0]
	case eliminated > 0 && len(alive) == 0:
		s.GameOver = true
		s.Winner = Neutral
	}
}
