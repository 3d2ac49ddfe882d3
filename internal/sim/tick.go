package sim

import "slices"

// Advance runs one tick of the pipeline with the merged commands of every
// player. The commands are executed in CompareCommands order whatever order
// they are passed in. Advance never fails: invalid commands are dropped and
// reported through Reject.
func (s *State) Advance(cmds []Command) {
	ordered := slices.Clone(cmds)
	SortCommands(ordered)
	for _, c := range ordered {
		s.applyCommand(c)
	}

	s.wildlife()
	s.reacquire()
	s.move()
	s.separate()
	s.harvest()
	s.combat()
	s.economy()
	s.updateVisibility()

	s.Tick++
}

// rate spreads a per-second amount over the current tick.
func (s *State) rate(perSecond int32) int32 {
	return PerTick(perSecond, s.Tick, s.Rules.TickRate)
}

// chaseThreshold is how far a chased target may drift from the end of the
// current route before the route is replanned.
func chaseThreshold(e *Entity) int64 {
	t := int64(e.Sight) * MilliPerTile / 4
	t = max(t, MilliPerTile)
	return t * t
}

// chase keeps e's route pointed at (x, y), replanning only when the goal drifted.
func (s *State) chase(e *Entity, x, y int32) {
	if len(e.Path) > 0 && distSq(e.TargetX, e.TargetY, x, y) <= chaseThreshold(e) {
		return
	}
	s.routeTo(e, x, y, true)
}

// reacquire updates the routes of attackers and harvesters whose targets
// moved or vanished.
func (s *State) reacquire() {
	for _, e := range s.Entities.All() {
		if e.Target == NoEntity {
			continue
		}
		t := s.Entity(e.Target)
		switch e.Behavior {
		case Attacking:
			if t == nil || !hostile(e, t) {
				halt(e)
				continue
			}
			if distSq(e.X, e.Y, t.X, t.Y) <= rangeSq(e.Range) {
				e.Path = nil
				e.TargetX, e.TargetY = e.X, e.Y
				continue
			}
			s.chase(e, t.X, t.Y)
		case Harvesting:
			if t == nil || t.Kind != KindCorpse || t.Jelly <= 0 {
				if e.Carrying == 0 {
					halt(e)
				}
				continue
			}
			// A partial load with jelly left means the route leads to the corpse.
			if len(e.Path) == 0 || e.Carrying >= s.Rules.Balance.CarryCapacity {
				continue
			}
			s.chase(e, t.X, t.Y)
		case Founding:
			if t == nil || t.Kind != KindHiveSite {
				halt(e)
			}
		}
	}
}

// move advances every entity with a route by at most its speed.
func (s *State) move() {
	for _, e := range s.Entities.All() {
		if len(e.Path) == 0 {
			continue
		}
		wp := e.Path[0]
		dx := int64(wp.X) - int64(e.X)
		dy := int64(wp.Y) - int64(e.Y)
		dist := isqrt(dx*dx + dy*dy)
		speed := int64(e.Speed)

		var nx, ny int32
		arrived := dist <= speed
		if arrived {
			nx, ny = wp.X, wp.Y
		} else {
			nx = e.X + int32(floorDiv(dx*speed, dist))
			ny = e.Y + int32(floorDiv(dy*speed, dist))
		}

		if !s.Map.WalkableAt(nx, ny) {
			e.Path = nil
			e.TargetX, e.TargetY = e.X, e.Y
		} else {
			e.X, e.Y = nx, ny
			if arrived {
				e.Path = e.Path[1:]
			}
		}
		if len(e.Path) == 0 {
			e.Path = nil
			if e.Behavior == Moving {
				e.Behavior = Idle
			}
		}
	}
}

// separate pushes overlapping mobile entities apart. Displacements are
// computed from the positions at the start of the phase and applied together.
func (s *State) separate() {
	radius := int64(s.Rules.Balance.SeparationRadius)
	if radius <= 0 {
		return
	}
	var mobile []*Entity
	for _, e := range s.Entities.All() {
		if e.Mobile() {
			mobile = append(mobile, e)
		}
	}
	if len(mobile) < 2 {
		return
	}

	push := make([]Point, len(mobile))
	r2 := radius * radius
	for i := range mobile {
		a := mobile[i]
		for j := i + 1; j < len(mobile); j++ {
			b := mobile[j]
			dx := int64(b.X) - int64(a.X)
			dy := int64(b.Y) - int64(a.Y)
			d2 := dx*dx + dy*dy
			if d2 >= r2 {
				continue
			}
			if d2 == 0 {
				// Ids ascend with the slice, so a is the lower id.
				half := int32(radius / 2)
				push[i].X -= half
				push[j].X += half
				continue
			}
			d := isqrt(d2)
			overlap := (radius - d) / 2
			px := int32(dx * overlap / d)
			py := int32(dy * overlap / d)
			push[i].X -= px
			push[i].Y -= py
			push[j].X += px
			push[j].Y += py
		}
	}

	for i, e := range mobile {
		p := push[i]
		if p.X == 0 && p.Y == 0 {
			continue
		}
		nx, ny := e.X+p.X, e.Y+p.Y
		if !s.Map.WalkableAt(nx, ny) {
			continue
		}
		idle := len(e.Path) == 0
		e.X, e.Y = nx, ny
		if idle {
			e.TargetX, e.TargetY = nx, ny
		}
	}
}
