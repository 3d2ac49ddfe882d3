package sim

// harvest runs the gather loop for every harvesting ant that has arrived:
// extract at the corpse until full or empty, walk to the nearest own hive,
// deposit, and go back while the corpse still holds jelly.
func (s *State) harvest() {
	b := &s.Rules.Balance
	r2 := rangeSq(b.HarvestRange)
	for _, e := range s.Entities.All() {
		if e.Behavior != Harvesting || !e.Kind.CanCarry() || len(e.Path) > 0 {
			continue
		}
		corpse := s.Entity(e.Target)
		hasJelly := corpse != nil && corpse.Kind == KindCorpse && corpse.Jelly > 0

		switch {
		case e.Carrying < b.CarryCapacity && hasJelly:
			if distSq(e.X, e.Y, corpse.X, corpse.Y) > r2 {
				// Pushed out of range.
				s.routeTo(e, corpse.X, corpse.Y, true)
				continue
			}
			s.extract(e, corpse)
		case e.Carrying > 0:
			s.deposit(e, corpse, hasJelly)
		default:
			halt(e)
		}
	}
}

func (s *State) extract(e, corpse *Entity) {
	b := &s.Rules.Balance
	amount := min(s.rate(b.HarvestRate), b.CarryCapacity-e.Carrying, corpse.Jelly)
	if amount > 0 {
		e.Carrying += amount
		corpse.Jelly -= amount
	}
	if e.Carrying >= b.CarryCapacity || corpse.Jelly <= 0 {
		hive := s.nearestOwnHive(e)
		if hive == nil {
			halt(e)
			return
		}
		s.routeTo(e, hive.X, hive.Y, true)
	}
}

func (s *State) deposit(e, corpse *Entity, hasJelly bool) {
	hive := s.nearestOwnHive(e)
	if hive == nil {
		// Nowhere to go; the load stays on the ant.
		halt(e)
		return
	}
	if distSq(e.X, e.Y, hive.X, hive.Y) > rangeSq(s.Rules.Balance.HarvestRange) {
		s.routeTo(e, hive.X, hive.Y, true)
		return
	}
	s.credit(e.Owner, e.Carrying)
	e.Carrying = 0
	if hasJelly {
		s.routeTo(e, corpse.X, corpse.Y, true)
		return
	}
	halt(e)
}

func (s *State) nearestOwnHive(e *Entity) *Entity {
	h, _ := s.nearest(e.X, e.Y, func(h *Entity) bool {
		return h.Kind == KindHive && h.Owner == e.Owner
	})
	return h
}
