package tui

import (
	"slices"

	"github.com/vovakirdan/antcraft/internal/sim"
)

// Controls is the local input state: a tile cursor and the selected units.
// It turns actions into commands against the player's current view and never
// touches the simulation itself.
type Controls struct {
	Cursor   sim.Point // tile coordinates
	Selected []sim.EntityID
}

// Center puts the cursor on the player's first hive.
func (c *Controls) Center(v *sim.View) {
	if hives := v.Own(sim.KindHive); len(hives) > 0 {
		c.Cursor = sim.Point{X: sim.ToTile(hives[0].X), Y: sim.ToTile(hives[0].Y)}
	}
}

// MoveCursor shifts the cursor, clamped to the map.
func (c *Controls) MoveCursor(dx, dy int32, v *sim.View) {
	c.Cursor.X += dx
	c.Cursor.Y += dy
	if v.Map == nil {
		return
	}
	c.Cursor.X = min(max(c.Cursor.X, 0), v.Map.Width-1)
	c.Cursor.Y = min(max(c.Cursor.Y, 0), v.Map.Height-1)
}

// IsSelected reports whether id is selected.
func (c *Controls) IsSelected(id sim.EntityID) bool {
	_, found := slices.BinarySearch(c.Selected, id)
	return found
}

// Toggle selects the own units under the cursor, or deselects them when
// they are all selected already.
func (c *Controls) Toggle(v *sim.View) {
	var here []sim.EntityID
	all := true
	for _, e := range v.At(c.Cursor.X, c.Cursor.Y) {
		if e.Owner != v.Player || !e.Mobile() {
			continue
		}
		here = append(here, e.ID)
		all = all && c.IsSelected(e.ID)
	}
	if len(here) == 0 {
		return
	}
	if all {
		c.Selected = slices.DeleteFunc(c.Selected, func(id sim.EntityID) bool {
			return slices.Contains(here, id)
		})
		return
	}
	for _, id := range here {
		if !c.IsSelected(id) {
			c.Selected = append(c.Selected, id)
			slices.Sort(c.Selected)
		}
	}
}

// SelectAll selects every own ant.
func (c *Controls) SelectAll(v *sim.View) {
	c.Selected = c.Selected[:0]
	for _, e := range v.Own(sim.KindAnt) {
		c.Selected = append(c.Selected, e.ID)
	}
	slices.Sort(c.Selected)
}

// Clear drops the selection.
func (c *Controls) Clear() {
	c.Selected = nil
}

// Prune removes selected ids that are no longer own units in v.
func (c *Controls) Prune(v *sim.View) {
	c.Selected = slices.DeleteFunc(c.Selected, func(id sim.EntityID) bool {
		e := v.Find(id)
		return e == nil || e.Owner != v.Player
	})
}

// selectedOf returns the selected units of kind k.
func (c *Controls) selectedOf(v *sim.View, k sim.Kind) []*sim.Entity {
	var out []*sim.Entity
	for _, id := range c.Selected {
		if e := v.Find(id); e != nil && e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Command builds the command for a, or reports false when the action has
// nothing to act on. Player and Tick are filled in by the session.
func (c *Controls) Command(a Action, v *sim.View) (sim.Command, bool) {
	tx, ty := sim.TileCenter(c.Cursor.X), sim.TileCenter(c.Cursor.Y)
	units := slices.Clone(c.Selected)

	switch a {
	case ActionMove:
		if len(units) == 0 {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdMove, Entities: units, TargetX: tx, TargetY: ty}, true

	case ActionStop:
		if len(units) == 0 {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdStop, Entities: units}, true

	case ActionAttack:
		t := c.targetAt(v, func(e *sim.Entity) bool {
			return e.Owner != v.Player && e.Kind.Attackable()
		})
		if len(units) == 0 || t == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdAttack, Entities: units, Target: t.ID}, true

	case ActionHarvest:
		t := c.targetAt(v, func(e *sim.Entity) bool { return e.Kind == sim.KindCorpse })
		if len(units) == 0 || t == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdHarvest, Entities: units, Target: t.ID}, true

	case ActionSpawn:
		h := nearestOwnHive(v, tx, ty)
		if h == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdSpawnAnt, Target: h.ID}, true

	case ActionMerge:
		h := nearestOwnHive(v, tx, ty)
		if h == nil {
			return sim.Command{}, false
		}
		ants := c.selectedOf(v, sim.KindAnt)
		if len(ants) == 0 {
			ants = v.Own(sim.KindAnt)
		}
		ids := make([]sim.EntityID, 0, len(ants))
		for _, e := range ants {
			ids = append(ids, e.ID)
		}
		if len(ids) == 0 {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdMergeQueen, Entities: ids, Target: h.ID}, true

	case ActionFound:
		queens := c.selectedOf(v, sim.KindQueen)
		if len(queens) == 0 {
			queens = v.Own(sim.KindQueen)
		}
		site := c.targetAt(v, func(e *sim.Entity) bool { return e.Kind == sim.KindHiveSite })
		if len(queens) != 1 || site == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdFoundHive, Entities: []sim.EntityID{queens[0].ID}, Target: site.ID}, true

	case ActionMorph:
		ants := c.selectedOf(v, sim.KindAnt)
		if len(ants) != 1 {
			return sim.Command{}, false
		}
		h := nearestOwnHive(v, ants[0].X, ants[0].Y)
		if h == nil {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CmdMorphSpitter, Entities: []sim.EntityID{ants[0].ID}, Target: h.ID}, true
	}
	return sim.Command{}, false
}

// targetAt returns the lowest-id entity under the cursor that passes keep.
func (c *Controls) targetAt(v *sim.View, keep func(*sim.Entity) bool) *sim.Entity {
	var best *sim.Entity
	for _, e := range v.At(c.Cursor.X, c.Cursor.Y) {
		if keep(e) && (best == nil || e.ID < best.ID) {
			best = e
		}
	}
	return best
}

func nearestOwnHive(v *sim.View, x, y int32) *sim.Entity {
	var best *sim.Entity
	var bestD int64
	for _, h := range v.Own(sim.KindHive) {
		dx, dy := int64(h.X-x), int64(h.Y-y)
		d := dx*dx + dy*dy
		if best == nil || d < bestD {
			best, bestD = h, d
		}
	}
	return best
}
