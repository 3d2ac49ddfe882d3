package sim

// Rejection reasons reported through RejectFunc.
const (
	reasonWrongTick     = "wrong tick"
	reasonBadPlayer     = "invalid player"
	reasonNoUnits       = "no eligible units"
	reasonBadTarget     = "invalid target"
	reasonNotOwner      = "not owner"
	reasonCooldown      = "spawn already pending"
	reasonFunds         = "insufficient jelly"
	reasonTooFew        = "not enough units in range"
	reasonOutOfRange    = "out of range"
	reasonUnreachable   = "unreachable"
	reasonUnknownType   = "unknown command type"
	reasonGameOver      = "game over"
	reasonNeedOneEntity = "exactly one unit required"
)

func (s *State) applyCommand(c Command) {
	if c.Tick != s.Tick {
		s.reject(c, reasonWrongTick)
		return
	}
	if !c.Player.Valid() {
		s.reject(c, reasonBadPlayer)
		return
	}
	if s.GameOver {
		s.reject(c, reasonGameOver)
		return
	}
	switch c.Type {
	case CmdMove:
		s.orderMove(c)
	case CmdStop:
		s.orderStop(c)
	case CmdHarvest:
		s.orderHarvest(c)
	case CmdSpawnAnt:
		s.orderSpawn(c)
	case CmdMergeQueen:
		s.orderMerge(c)
	case CmdFoundHive:
		s.orderFound(c)
	case CmdAttack:
		s.orderAttack(c)
	case CmdMorphSpitter:
		s.orderMorph(c)
	default:
		s.reject(c, reasonUnknownType)
	}
}

// units resolves the command's entity ids to live units the player owns and
// that pass keep. Unknown, foreign and repeated ids are skipped.
func (s *State) units(c Command, keep func(*Entity) bool) []*Entity {
	var out []*Entity
	seen := make(map[EntityID]bool, len(c.Entities))
	for _, id := range c.Entities {
		if seen[id] {
			continue
		}
		seen[id] = true
		e := s.Entity(id)
		if e == nil || e.Owner != c.Player || !e.Mobile() {
			continue
		}
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ownHive returns the command's target if it is a hive the player owns.
func (s *State) ownHive(c Command) *Entity {
	h := s.Entity(c.Target)
	if h == nil || h.Kind != KindHive {
		s.reject(c, reasonBadTarget)
		return nil
	}
	if h.Owner != c.Player {
		s.reject(c, reasonNotOwner)
		return nil
	}
	return h
}

// halt clears movement and explicit targets but keeps carried jelly.
func halt(e *Entity) {
	e.Path = nil
	e.TargetX, e.TargetY = e.X, e.Y
	e.Target = NoEntity
	e.Behavior = Idle
}

// routeTo plans a path to the milli-tile point (tx, ty). Same-tile goals are
// walked to directly. When exact is set the final waypoint is the point
// itself instead of its tile centre. An unreachable goal leaves the entity
// in place and returns false.
func (s *State) routeTo(e *Entity, tx, ty int32, exact bool) bool {
	start := Point{ToTile(e.X), ToTile(e.Y)}
	goal := Point{ToTile(tx), ToTile(ty)}
	if start == goal {
		e.Path = []Point{{tx, ty}}
		e.TargetX, e.TargetY = tx, ty
		return true
	}
	tiles := FindPath(s.Map, start, goal)
	if len(tiles) == 0 {
		e.Path = nil
		e.TargetX, e.TargetY = e.X, e.Y
		return false
	}
	path := make([]Point, len(tiles))
	for i, t := range tiles {
		path[i] = Point{TileCenter(t.X), TileCenter(t.Y)}
	}
	if exact {
		path[len(path)-1] = Point{tx, ty}
	}
	e.Path = path
	last := path[len(path)-1]
	e.TargetX, e.TargetY = last.X, last.Y
	return true
}

func (s *State) orderMove(c Command) {
	units := s.units(c, nil)
	if len(units) == 0 {
		s.reject(c, reasonNoUnits)
		return
	}
	tx, ty := c.TargetX, c.TargetY
	if !s.Map.WalkableAt(tx, ty) {
		t, ok := s.Map.NearestWalkable(ToTile(tx), ToTile(ty))
		if !ok {
			s.reject(c, reasonUnreachable)
			return
		}
		tx, ty = TileCenter(t.X), TileCenter(t.Y)
	}
	for _, u := range units {
		halt(u)
		if s.routeTo(u, tx, ty, true) {
			u.Behavior = Moving
		} else {
			s.reject(c, reasonUnreachable)
		}
	}
}

func (s *State) orderStop(c Command) {
	units := s.units(c, nil)
	if len(units) == 0 {
		s.reject(c, reasonNoUnits)
		return
	}
	for _, u := range units {
		halt(u)
	}
}

func (s *State) orderAttack(c Command) {
	t := s.Entity(c.Target)
	if t == nil || !t.Kind.Attackable() {
		s.reject(c, reasonBadTarget)
		return
	}
	units := s.units(c, func(e *Entity) bool { return e.Damage > 0 && hostile(e, t) })
	if len(units) == 0 {
		s.reject(c, reasonNoUnits)
		return
	}
	for _, u := range units {
		halt(u)
		u.Target = t.ID
		u.Behavior = Attacking
		if distSq(u.X, u.Y, t.X, t.Y) > rangeSq(u.Range) {
			s.routeTo(u, t.X, t.Y, true)
		}
	}
}

func (s *State) orderHarvest(c Command) {
	corpse := s.Entity(c.Target)
	if corpse == nil || corpse.Kind != KindCorpse || corpse.Jelly <= 0 {
		s.reject(c, reasonBadTarget)
		return
	}
	units := s.units(c, func(e *Entity) bool { return e.Kind.CanCarry() })
	if len(units) == 0 {
		s.reject(c, reasonNoUnits)
		return
	}
	for _, u := range units {
		halt(u)
		u.Target = corpse.ID
		u.Behavior = Harvesting
		if distSq(u.X, u.Y, corpse.X, corpse.Y) > rangeSq(s.Rules.Balance.HarvestRange) {
			s.routeTo(u, corpse.X, corpse.Y, true)
		}
	}
}

func (s *State) orderSpawn(c Command) {
	h := s.ownHive(c)
	if h == nil {
		return
	}
	if h.Cooldown > 0 {
		s.reject(c, reasonCooldown)
		return
	}
	b := &s.Rules.Balance
	if !s.debit(c.Player, b.SpawnCost) {
		s.reject(c, reasonFunds)
		return
	}
	h.Cooldown = max(b.SpawnCooldown, 1)
}

func (s *State) orderMerge(c Command) {
	h := s.ownHive(c)
	if h == nil {
		return
	}
	b := &s.Rules.Balance
	r2 := rangeSq(b.MergeRange)
	ants := s.units(c, func(e *Entity) bool {
		return e.Kind == KindAnt && distSq(e.X, e.Y, h.X, h.Y) <= r2
	})
	if int32(len(ants)) < b.QueenMergeCost || b.QueenMergeCost <= 0 {
		s.reject(c, reasonTooFew)
		return
	}
	merged := make(map[EntityID]bool, b.QueenMergeCost)
	for _, a := range ants[:b.QueenMergeCost] {
		merged[a.ID] = true
	}
	s.Entities.removeIf(func(e *Entity) bool { return merged[e.ID] })
	s.Spawn(KindQueen, c.Player, h.X, h.Y)
}

func (s *State) orderFound(c Command) {
	if len(c.Entities) != 1 {
		s.reject(c, reasonNeedOneEntity)
		return
	}
	queens := s.units(c, func(e *Entity) bool { return e.Kind == KindQueen })
	if len(queens) != 1 {
		s.reject(c, reasonNoUnits)
		return
	}
	site := s.Entity(c.Target)
	if site == nil || site.Kind != KindHiveSite {
		s.reject(c, reasonBadTarget)
		return
	}
	q := queens[0]
	halt(q)
	if !s.routeTo(q, site.X, site.Y, true) {
		s.reject(c, reasonUnreachable)
		return
	}
	q.Target = site.ID
	q.Behavior = Founding
}

func (s *State) orderMorph(c Command) {
	if len(c.Entities) != 1 {
		s.reject(c, reasonNeedOneEntity)
		return
	}
	ants := s.units(c, func(e *Entity) bool { return e.Kind == KindAnt })
	if len(ants) != 1 {
		s.reject(c, reasonNoUnits)
		return
	}
	h := s.ownHive(c)
	if h == nil {
		return
	}
	ant := ants[0]
	b := &s.Rules.Balance
	if distSq(ant.X, ant.Y, h.X, h.Y) > rangeSq(b.MergeRange) {
		s.reject(c, reasonOutOfRange)
		return
	}
	if !s.debit(c.Player, b.SpitterMorphCost) {
		s.reject(c, reasonFunds)
		return
	}
	x, y := ant.X, ant.Y
	s.Entities.remove(ant.ID)
	s.Spawn(KindSpitter, c.Player, x, y)
}
