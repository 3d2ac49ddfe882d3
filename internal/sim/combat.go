package sim

type attack struct {
	target EntityID
	amount int32
}

// combat decays corpses, resolves every attack against the tick's start
// state, applies the damage and then processes deaths.
func (s *State) combat() {
	s.decayCorpses()

	var attacks []attack
	for _, a := range s.Entities.All() {
		if a.Damage <= 0 || a.Kind.IsStructure() {
			continue
		}
		dmg := s.rate(a.Damage)
		if dmg <= 0 {
			// Rest tick: keep the current behaviour.
			continue
		}
		t := s.pickTarget(a)
		if t == nil {
			if a.Behavior == Attacking && a.Target == NoEntity {
				a.Behavior = Idle
			}
			continue
		}
		attacks = append(attacks, attack{target: t.ID, amount: dmg})
		if a.Behavior == Idle || a.Behavior == Moving {
			a.Behavior = Attacking
		}
	}

	for _, at := range attacks {
		if t := s.Entity(at.target); t != nil {
			t.HP -= at.amount
		}
	}

	s.processDeaths()
}

// pickTarget returns the explicit target when it is in range, otherwise the
// nearest hostile in range with ties going to the lower id. An attacker still
// chasing an explicit target does not switch to others.
func (s *State) pickTarget(a *Entity) *Entity {
	r2 := rangeSq(a.Range)
	if a.Target != NoEntity {
		t := s.Entity(a.Target)
		if t != nil && hostile(a, t) && distSq(a.X, a.Y, t.X, t.Y) <= r2 {
			return t
		}
		if a.Behavior == Attacking {
			return nil
		}
	}
	t, d := s.nearest(a.X, a.Y, func(t *Entity) bool { return hostile(a, t) })
	if t == nil || d > r2 {
		return nil
	}
	return t
}

func (s *State) decayCorpses() {
	for _, e := range s.Entities.All() {
		if e.Kind == KindCorpse {
			e.HP--
		}
	}
	s.Entities.removeIf(func(e *Entity) bool { return e.Kind == KindCorpse && e.HP <= 0 })
}

// processDeaths removes every entity at or below zero hit points and leaves
// a corpse for kinds that carry a corpse value. Carried jelly is lost.
func (s *State) processDeaths() {
	var dead []*Entity
	s.Entities.removeIf(func(e *Entity) bool {
		if e.HP > 0 || e.Kind == KindCorpse || e.Kind == KindHiveSite {
			return false
		}
		dead = append(dead, e)
		return true
	})
	for _, e := range dead {
		jelly := s.Rules.Balance.Stats(e.Kind).CorpseJelly
		if jelly <= 0 {
			continue
		}
		c := s.Spawn(KindCorpse, Neutral, e.X, e.Y)
		c.Jelly = jelly
	}
}
