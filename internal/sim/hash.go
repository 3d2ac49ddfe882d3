package sim

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
)

// Digest is the SHA-256 of a snapshot.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first eight hex digits, enough for log lines.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:4])
}

type hashWriter struct {
	h   hash.Hash
	buf [8]byte
}

func (w *hashWriter) u8(v uint8) {
	w.buf[0] = v
	w.h.Write(w.buf[:1])
}

func (w *hashWriter) u32(v uint32) {
	binary.BigEndian.PutUint32(w.buf[:4], v)
	w.h.Write(w.buf[:4])
}

func (w *hashWriter) i32(v int32) { w.u32(uint32(v)) }

func (w *hashWriter) flag(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

// Digest hashes the entire snapshot: counters, generator, ledgers, every
// entity field in id order, the tile grid and both visibility grids. All
// fields are fixed-width big-endian.
func (s *State) Digest() Digest {
	w := &hashWriter{h: sha256.New()}
	w.u32(s.Tick)
	w.u32(s.Rng.State)
	w.u32(uint32(s.Entities.NextID))
	w.flag(s.GameOver)
	w.i32(int32(s.Winner))
	for p := range Players {
		w.i32(s.Jelly[p])
	}

	all := s.Entities.All()
	w.u32(uint32(len(all)))
	for _, e := range all {
		w.u32(uint32(e.ID))
		w.u8(uint8(e.Kind))
		w.i32(int32(e.Owner))
		w.i32(e.X)
		w.i32(e.Y)
		w.i32(e.TargetX)
		w.i32(e.TargetY)
		w.u32(uint32(len(e.Path)))
		for _, p := range e.Path {
			w.i32(p.X)
			w.i32(p.Y)
		}
		w.i32(e.HP)
		w.i32(e.MaxHP)
		w.i32(e.Damage)
		w.i32(e.Range)
		w.i32(e.Speed)
		w.i32(e.Sight)
		w.u8(uint8(e.Behavior))
		w.i32(e.Carrying)
		w.i32(e.Jelly)
		w.i32(e.Cooldown)
		w.u32(uint32(e.Target))
	}

	w.i32(s.Map.Width)
	w.i32(s.Map.Height)
	for _, t := range s.Map.Tiles {
		w.u8(uint8(t))
	}
	for p := range Players {
		w.h.Write(s.Vis[p].Cells)
	}

	var d Digest
	w.h.Sum(d[:0])
	return d
}

type entityDump struct {
	ID       EntityID `json:"id"`
	Kind     string   `json:"kind"`
	Owner    PlayerID `json:"owner"`
	X        int32    `json:"x"`
	Y        int32    `json:"y"`
	TargetX  int32    `json:"target_x"`
	TargetY  int32    `json:"target_y"`
	Path     []Point  `json:"path,omitempty"`
	HP       int32    `json:"hp"`
	MaxHP    int32    `json:"max_hp"`
	Behavior string   `json:"behavior"`
	Carrying int32    `json:"carrying,omitempty"`
	Jelly    int32    `json:"jelly,omitempty"`
	Cooldown int32    `json:"cooldown,omitempty"`
	Target   EntityID `json:"target,omitempty"`
}

type stateDump struct {
	Tick     uint32         `json:"tick"`
	Digest   string         `json:"digest"`
	Rng      uint32         `json:"rng"`
	NextID   EntityID       `json:"next_id"`
	Jelly    []int32        `json:"jelly"`
	GameOver bool           `json:"game_over"`
	Winner   PlayerID       `json:"winner"`
	Entities []entityDump   `json:"entities"`
	Map      string         `json:"map"`
	Vis      map[string]int `json:"visible_tiles"`
}

// Dump renders the snapshot as JSON for desync diagnostics.
func (s *State) Dump() []byte {
	d := stateDump{
		Tick:     s.Tick,
		Digest:   s.Digest().String(),
		Rng:      s.Rng.State,
		NextID:   s.Entities.NextID,
		Jelly:    s.Jelly[:],
		GameOver: s.GameOver,
		Winner:   s.Winner,
		Map:      s.Map.String(),
		Vis:      make(map[string]int, Players),
	}
	for _, e := range s.Entities.All() {
		d.Entities = append(d.Entities, entityDump{
			ID: e.ID, Kind: e.Kind.String(), Owner: e.Owner,
			X: e.X, Y: e.Y, TargetX: e.TargetX, TargetY: e.TargetY,
			Path: e.Path, HP: e.HP, MaxHP: e.MaxHP, Behavior: e.Behavior.String(),
			Carrying: e.Carrying, Jelly: e.Jelly, Cooldown: e.Cooldown, Target: e.Target,
		})
	}
	for p := range Players {
		n := 0
		for _, c := range s.Vis[p].Cells {
			if c == Visible {
				n++
			}
		}
		d.Vis[PlayerID(p).String()] = n
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		// Only plain values are marshalled.
		panic(err)
	}
	return out
}
