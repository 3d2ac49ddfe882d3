// Package sim implements the deterministic AntCraft simulation: the tick
// pipeline both peers run in lockstep, and everything it reads or mutates.
//
// All arithmetic is integer. Positions are in milli-tiles (1 tile = 1000).
// Nothing in this package may read a clock, an ambient random source or
// iterate a map in an order that reaches the simulation state.
package sim

import "strconv"

// MilliPerTile is the number of position units per tile.
const MilliPerTile = 1000

// Players is the number of player slots in a match.
const Players = 2

// PlayerID identifies an owning player. Neutral marks wildlife, corpses and
// unclaimed hive sites.
type PlayerID int32

// Neutral is the owner of entities that belong to no player.
const Neutral PlayerID = -1

// Valid reports whether p is a real player slot.
func (p PlayerID) Valid() bool {
	return p >= 0 && p < Players
}

// EntityID is a unique, never reused entity handle. Zero means "none".
type EntityID uint32

// NoEntity is the zero handle.
const NoEntity EntityID = 0

// Point is a pair of integer coordinates, in tiles or milli-tiles depending
// on context.
type Point struct {
	X, Y int32
}

// TileCenter converts a tile coordinate to the milli-tile coordinate at its centre.
func TileCenter(t int32) int32 {
	return t*MilliPerTile + MilliPerTile/2
}

// ToTile converts a milli-tile coordinate to the tile containing it.
func ToTile(m int32) int32 {
	if m < 0 {
		return (m - MilliPerTile + 1) / MilliPerTile
	}
	return m / MilliPerTile
}

// distSq returns the squared distance between two points as int64 so that
// large maps cannot overflow.
func distSq(ax, ay, bx, by int32) int64 {
	dx := int64(ax) - int64(bx)
	dy := int64(ay) - int64(by)
	return dx*dx + dy*dy
}

// rangeSq returns the squared milli-tile length of a range given in tiles.
func rangeSq(tiles int32) int64 {
	r := int64(tiles) * MilliPerTile
	return r * r
}

// isqrt returns floor(sqrt(n)) for n >= 0.
func isqrt(n int64) int64 {
	if n < 2 {
		if n < 0 {
			return 0
		}
		return n
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// floorDiv divides rounding toward negative infinity. d must be positive.
func floorDiv(n, d int64) int64 {
	q := n / d
	if n%d != 0 && n < 0 {
		q--
	}
	return q
}

func (p PlayerID) String() string {
	if p == Neutral {
		return "neutral"
	}
	return "p" + strconv.Itoa(int(p))
}
