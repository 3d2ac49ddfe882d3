package sim

// View is a read-only copy of what one player may see. Renderers and input
// layers work on views and never on the live State.
type View struct {
	Tick     uint32
	Player   PlayerID
	Jelly    int32
	GameOver bool
	Winner   PlayerID
	Map      *TileMap // shared, never mutated
	Vis      *VisGrid
	Entities []Entity
}

// ViewFor builds the view of player p. Own entities are always included;
// everything else only when it stands on a currently visible tile.
func (s *State) ViewFor(p PlayerID) View {
	v := View{
		Tick:     s.Tick,
		Player:   p,
		GameOver: s.GameOver,
		Winner:   s.Winner,
		Map:      s.Map,
	}
	if !p.Valid() {
		return v
	}
	v.Jelly = s.Jelly[p]
	v.Vis = s.Vis[p].Clone()
	for _, e := range s.Entities.All() {
		if e.Owner != p && !v.Vis.IsVisible(ToTile(e.X), ToTile(e.Y)) {
			continue
		}
		c := e.clone()
		v.Entities = append(v.Entities, *c)
	}
	return v
}

// Find returns the visible entity with id, or nil.
func (v *View) Find(id EntityID) *Entity {
	for i := range v.Entities {
		if v.Entities[i].ID == id {
			return &v.Entities[i]
		}
	}
	return nil
}

// At returns the visible entities whose position lies on tile (tx, ty).
func (v *View) At(tx, ty int32) []*Entity {
	var out []*Entity
	for i := range v.Entities {
		e := &v.Entities[i]
		if ToTile(e.X) == tx && ToTile(e.Y) == ty {
			out = append(out, e)
		}
	}
	return out
}

// Own returns the player's own entities of kind k.
func (v *View) Own(k Kind) []*Entity {
	var out []*Entity
	for i := range v.Entities {
		e := &v.Entities[i]
		if e.Owner == v.Player && e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
