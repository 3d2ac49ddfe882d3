package sim

// RejectFunc receives every command the pipeline drops, with the reason.
type RejectFunc func(cmd Command, reason string)

// State is the simulation snapshot. It is owned by whoever calls Advance;
// collaborators get copies through ViewFor or Clone.
type State struct {
	Tick     uint32
	Rng      Rand
	Entities Store
	Jelly    [Players]int32
	Map      *TileMap
	Vis      [Players]*VisGrid
	GameOver bool
	Winner   PlayerID
	Rules    Rules

	// Reject is an optional observer and not part of the snapshot.
	Reject RejectFunc
}

// New creates a state on the map generated from seed, with no entities.
func New(seed uint32, rules Rules) *State {
	return NewWithMap(seed, rules, Generate(seed, rules.MapWidth, rules.MapHeight))
}

// NewWithMap creates an entity-free state on an explicit map.
func NewWithMap(seed uint32, rules Rules, m *TileMap) *State {
	s := &State{
		Rng:      NewRand(seed),
		Entities: newStore(),
		Map:      m,
		Winner:   Neutral,
		Rules:    rules,
	}
	for p := range Players {
		s.Vis[p] = NewVisGrid(m.Width, m.Height)
		s.Jelly[p] = rules.Balance.StartingJelly
	}
	return s
}

// NewMatch creates the starting position of a match: generated map, hives,
// starting ants, hive sites and the initial wildlife, with visibility
// already computed.
func NewMatch(seed uint32, rules Rules) *State {
	s := New(seed, rules)
	s.setup()
	return s
}

var startOffsets = []Point{{-2, -1}, {-1, 1}, {0, -2}, {1, 1}, {2, -1}}

func (s *State) setup() {
	for p, start := range s.Map.Starts {
		if p >= Players {
			break
		}
		hx, hy := TileCenter(start.X), TileCenter(start.Y)
		s.Spawn(KindHive, PlayerID(p), hx, hy)
		for i := range s.Rules.Balance.StartingAnts {
			off := startOffsets[int(i)%len(startOffsets)]
			s.Spawn(KindAnt, PlayerID(p), hx+off.X*MilliPerTile, hy+off.Y*MilliPerTile)
		}
	}
	for _, site := range s.Map.Sites {
		s.Spawn(KindHiveSite, Neutral, TileCenter(site.X), TileCenter(site.Y))
	}

	cx, cy := s.Map.Width/2, s.Map.Height/2
	for dx := range int32(4) {
		s.spawnWildAt(KindAphid, cx+dx, cy-8)
	}
	s.spawnWildAt(KindBeetle, cx+8, cy)
	s.spawnWildAt(KindMantis, cx, cy+8)

	s.updateVisibility()
}

func (s *State) spawnWildAt(k Kind, tx, ty int32) {
	t, ok := s.Map.NearestWalkable(tx, ty)
	if !ok {
		return
	}
	s.Spawn(k, Neutral, TileCenter(t.X), TileCenter(t.Y))
}

// Spawn creates an entity of kind k with its base stats. It is exported for
// scenario setup; during play only pipeline phases call it.
func (s *State) Spawn(k Kind, owner PlayerID, x, y int32) *Entity {
	st := s.Rules.Balance.Stats(k)
	e := &Entity{
		Kind:    k,
		Owner:   owner,
		X:       x,
		Y:       y,
		TargetX: x,
		TargetY: y,
		HP:      st.HP,
		MaxHP:   st.HP,
		Damage:  st.Damage,
		Range:   st.Range,
		Speed:   st.Speed,
		Sight:   st.Sight,
		Jelly:   st.CorpseJelly,
	}
	switch k {
	case KindHiveSite:
		e.HP, e.MaxHP, e.Jelly = 1, 1, 0
	case KindCorpse:
		e.HP = s.Rules.Balance.CorpseDecayTicks
		e.MaxHP = e.HP
	}
	return s.Entities.add(e)
}

// Entity looks an entity up by id.
func (s *State) Entity(id EntityID) *Entity {
	return s.Entities.Get(id)
}

// Clone returns an independent deep copy. The tile map is shared because it
// never changes after generation.
func (s *State) Clone() *State {
	c := *s
	c.Entities = s.Entities.clone()
	for p := range Players {
		c.Vis[p] = s.Vis[p].Clone()
	}
	return &c
}

func (s *State) reject(cmd Command, reason string) {
	if s.Reject != nil {
		s.Reject(cmd, reason)
	}
}

// credit adds jelly to a player's ledger.
func (s *State) credit(p PlayerID, amount int32) {
	if p.Valid() && amount > 0 {
		s.Jelly[p] += amount
	}
}

// debit removes jelly if the ledger covers it.
func (s *State) debit(p PlayerID, amount int32) bool {
	if !p.Valid() || s.Jelly[p] < amount {
		return false
	}
	s.Jelly[p] -= amount
	return true
}

// nearest returns the entity closest to (x, y) that satisfies keep, ties
// going to the lower id. The second result is the squared distance.
func (s *State) nearest(x, y int32, keep func(*Entity) bool) (*Entity, int64) {
	var best *Entity
	var bestD int64
	for _, e := range s.Entities.All() {
		if !keep(e) {
			continue
		}
		d := distSq(x, y, e.X, e.Y)
		if best == nil || d < bestD {
			best, bestD = e, d
		}
	}
	return best, bestD
}
