package sim

import (
	"fmt"
	"slices"
)

// Kind discriminates entity variants. The numeric values are part of the
// state digest and must not be reordered.
type Kind uint8

const (
	KindAnt Kind = iota
	KindQueen
	KindHive
	KindHiveSite
	KindCorpse
	KindAphid
	KindBeetle
	KindMantis
	KindSpitter
)

var kindNames = [...]string{
	KindAnt:      "ant",
	KindQueen:    "queen",
	KindHive:     "hive",
	KindHiveSite: "hive-site",
	KindCorpse:   "corpse",
	KindAphid:    "aphid",
	KindBeetle:   "beetle",
	KindMantis:   "mantis",
	KindSpitter:  "spitter",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsStructure reports whether the kind is a static building or marker.
func (k Kind) IsStructure() bool {
	return k == KindHive || k == KindHiveSite
}

// IsWildlife reports whether the kind is a neutral creature.
func (k Kind) IsWildlife() bool {
	return k == KindAphid || k == KindBeetle || k == KindMantis
}

// Attackable reports whether entities of this kind can take damage.
func (k Kind) Attackable() bool {
	switch k {
	case KindAnt, KindQueen, KindHive, KindSpitter, KindAphid, KindBeetle, KindMantis:
		return true
	}
	return false
}

// CanCarry reports whether the kind can harvest jelly.
func (k Kind) CanCarry() bool {
	return k == KindAnt
}

// Behavior is an entity's current activity.
type Behavior uint8

const (
	Idle Behavior = iota
	Moving
	Attacking
	Harvesting
	Founding
)

func (b Behavior) String() string {
	switch b {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Attacking:
		return "attacking"
	case Harvesting:
		return "harvesting"
	case Founding:
		return "founding"
	default:
		return fmt.Sprintf("behavior(%d)", b)
	}
}

// Entity is one game object. Positions are milli-tiles; Range and Sight are
// tiles. Cross references are ids, never pointers.
type Entity struct {
	ID    EntityID
	Kind  Kind
	Owner PlayerID

	X, Y             int32
	TargetX, TargetY int32
	Path             []Point // milli-tile waypoints, next first

	HP, MaxHP int32
	Damage    int32 // per second
	Range     int32
	Speed     int32 // milli-tiles per tick
	Sight     int32

	Behavior Behavior
	Carrying int32
	Jelly    int32 // corpse contents
	Cooldown int32
	Target   EntityID
}

// Pos returns the entity position.
func (e *Entity) Pos() Point {
	return Point{e.X, e.Y}
}

// Mobile reports whether the entity can move at all.
func (e *Entity) Mobile() bool {
	return e.Speed > 0 && !e.Kind.IsStructure()
}

// clone returns a deep copy.
func (e *Entity) clone() *Entity {
	c := *e
	c.Path = slices.Clone(e.Path)
	return &c
}

// hostile reports whether a may attack b.
func hostile(a, b *Entity) bool {
	if !b.Kind.Attackable() || a.ID == b.ID {
		return false
	}
	if a.Owner == Neutral {
		return b.Owner != Neutral
	}
	return a.Owner != b.Owner
}

// Store is the id-ordered entity arena. Ids are assigned in ascending order
// and never reused, so appending keeps the slice sorted.
type Store struct {
	NextID EntityID
	list   []*Entity
}

func newStore() Store {
	return Store{NextID: 1}
}

// All returns entities in id order. The slice must not be modified.
func (s *Store) All() []*Entity {
	return s.list
}

// Len returns the number of live entities.
func (s *Store) Len() int {
	return len(s.list)
}

// Get looks an entity up by id.
func (s *Store) Get(id EntityID) *Entity {
	i, ok := slices.BinarySearchFunc(s.list, id, func(e *Entity, id EntityID) int {
		switch {
		case e.ID < id:
			return -1
		case e.ID > id:
			return 1
		}
		return 0
	})
	if !ok {
		return nil
	}
	return s.list[i]
}

// add assigns the next id and appends the entity.
func (s *Store) add(e *Entity) *Entity {
	e.ID = s.NextID
	s.NextID++
	s.list = append(s.list, e)
	return e
}

// removeIf drops every entity for which drop returns true, preserving order.
func (s *Store) removeIf(drop func(*Entity) bool) {
	s.list = slices.DeleteFunc(s.list, drop)
}

func (s *Store) remove(id EntityID) {
	s.removeIf(func(e *Entity) bool { return e.ID == id })
}

func (s *Store) clone() Store {
	c := Store{NextID: s.NextID, list: make([]*Entity, len(s.list))}
	for i, e := range s.list {
		c.list[i] = e.clone()
	}
	return c
}
