package sim

// wildlife runs the neutral creature AI, then the periodic spawner.
func (s *State) wildlife() {
	s.huntPlayers()
	s.spawnWildlife()
}

// huntPlayers sends idle beetles and mantises toward the nearest
// player-owned entity within aggro range. Aphids never move.
func (s *State) huntPlayers() {
	r2 := rangeSq(s.Rules.Balance.WildlifeAggroRange)
	for _, e := range s.Entities.All() {
		if e.Owner != Neutral || (e.Kind != KindBeetle && e.Kind != KindMantis) {
			continue
		}
		if e.Speed <= 0 || e.Behavior == Attacking || len(e.Path) > 0 {
			continue
		}
		prey, d := s.nearest(e.X, e.Y, func(t *Entity) bool { return t.Owner.Valid() })
		if prey == nil || d > r2 {
			continue
		}
		if s.routeTo(e, prey.X, prey.Y, true) {
			e.Behavior = Moving
		}
	}
}

const wildlifeSpawnAttempts = 10

func (s *State) spawnWildlife() {
	b := &s.Rules.Balance
	if b.WildlifeSpawnInterval <= 0 || s.Tick%uint32(b.WildlifeSpawnInterval) != 0 {
		return
	}
	var aphids, beetles, mantises int32
	for _, e := range s.Entities.All() {
		switch e.Kind {
		case KindAphid:
			aphids++
		case KindBeetle:
			beetles++
		case KindMantis:
			mantises++
		}
	}

	roll := s.Rng.Next(100)
	var kind Kind
	switch {
	case roll < 50:
		if aphids >= b.MaxAphids {
			return
		}
		kind = KindAphid
	case roll < 80:
		if beetles >= b.MaxBeetles {
			return
		}
		kind = KindBeetle
	default:
		if mantises >= b.MaxMantises {
			return
		}
		kind = KindMantis
	}

	var hives []Point
	for _, e := range s.Entities.All() {
		if e.Kind == KindHive {
			hives = append(hives, Point{ToTile(e.X), ToTile(e.Y)})
		}
	}
	excl := int64(b.WildlifeHiveExclusion) * int64(b.WildlifeHiveExclusion)

	for range wildlifeSpawnAttempts {
		tx := int32(s.Rng.Next(uint32(s.Map.Width)))
		ty := int32(s.Rng.Next(uint32(s.Map.Height)))
		if !s.Map.Walkable(tx, ty) {
			continue
		}
		near := false
		for _, h := range hives {
			if distSq(tx, ty, h.X, h.Y) < excl {
				near = true
				break
			}
		}
		if near {
			continue
		}
		s.Spawn(kind, Neutral, TileCenter(tx), TileCenter(ty))
		return
	}
}
