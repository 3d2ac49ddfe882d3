package sim

import "strings"

// Tile is a terrain cell.
type Tile uint8

const (
	Dirt Tile = iota
	Rock
)

// TileMap is the terrain grid. It is immutable once a match starts, so views
// may share it without copying.
type TileMap struct {
	Width  int32
	Height int32
	Tiles  []Tile // row-major, Tiles[y*Width+x]

	// Starts holds each player's start tile, Sites the expansion points.
	Starts []Point
	Sites  []Point
}

// NewTileMap creates an all-dirt map.
func NewTileMap(width, height int32) *TileMap {
	return &TileMap{
		Width:  width,
		Height: height,
		Tiles:  make([]Tile, int(width)*int(height)),
	}
}

// OpenTileMap creates an all-dirt map surrounded by a one-tile rock border.
func OpenTileMap(width, height int32) *TileMap {
	m := NewTileMap(width, height)
	m.addBorder()
	return m
}

// ParseTileMap builds a map from rows of ASCII art: 'X' or '#' is rock,
// anything else is dirt. Short rows are padded with dirt.
func ParseTileMap(rows ...string) *TileMap {
	var width int
	for _, row := range rows {
		width = max(width, len(row))
	}
	m := NewTileMap(int32(width), int32(len(rows)))
	for y, row := range rows {
		for x, ch := range row {
			if ch == 'X' || ch == '#' {
				m.Set(int32(x), int32(y), Rock)
			}
		}
	}
	return m
}

// InBounds reports whether (x, y) is inside the grid.
func (m *TileMap) InBounds(x, y int32) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At returns the tile at (x, y). Out-of-bounds tiles are rock.
func (m *TileMap) At(x, y int32) Tile {
	if !m.InBounds(x, y) {
		return Rock
	}
	return m.Tiles[y*m.Width+x]
}

// Set changes a tile. Out-of-bounds writes are ignored.
func (m *TileMap) Set(x, y int32, t Tile) {
	if !m.InBounds(x, y) {
		return
	}
	m.Tiles[y*m.Width+x] = t
}

// Walkable reports whether a tile can be entered.
func (m *TileMap) Walkable(x, y int32) bool {
	return m.At(x, y) == Dirt
}

// WalkableAt reports whether the tile under a milli-tile position can be entered.
func (m *TileMap) WalkableAt(mx, my int32) bool {
	return m.Walkable(ToTile(mx), ToTile(my))
}

// NearestWalkable returns the walkable tile closest to (x, y), searching
// square rings of growing radius. Within a ring, candidates are compared by
// squared distance, then row, then column, so the answer never depends on
// scan order.
func (m *TileMap) NearestWalkable(x, y int32) (Point, bool) {
	if m.Walkable(x, y) {
		return Point{x, y}, true
	}
	limit := max(m.Width, m.Height)
	for r := int32(1); r <= limit; r++ {
		best := Point{}
		bestD := int64(-1)
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx != -r && dx != r && dy != -r && dy != r {
					continue
				}
				cx, cy := x+dx, y+dy
				if !m.Walkable(cx, cy) {
					continue
				}
				d := int64(dx)*int64(dx) + int64(dy)*int64(dy)
				if bestD < 0 || d < bestD || (d == bestD && (cy < best.Y || (cy == best.Y && cx < best.X))) {
					best = Point{cx, cy}
					bestD = d
				}
			}
		}
		if bestD >= 0 {
			return best, true
		}
	}
	return Point{}, false
}

// Clone returns a deep copy.
func (m *TileMap) Clone() *TileMap {
	c := *m
	c.Tiles = append([]Tile(nil), m.Tiles...)
	c.Starts = append([]Point(nil), m.Starts...)
	c.Sites = append([]Point(nil), m.Sites...)
	return &c
}

// String renders the map as ASCII art ('.' dirt, 'X' rock).
func (m *TileMap) String() string {
	var sb strings.Builder
	sb.Grow(int(m.Width+1) * int(m.Height))
	for y := int32(0); y < m.Height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := int32(0); x < m.Width; x++ {
			if m.At(x, y) == Rock {
				sb.WriteByte('X')
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

func (m *TileMap) addBorder() {
	for x := int32(0); x < m.Width; x++ {
		m.Set(x, 0, Rock)
		m.Set(x, m.Height-1, Rock)
	}
	for y := int32(0); y < m.Height; y++ {
		m.Set(0, y, Rock)
		m.Set(m.Width-1, y, Rock)
	}
}

// Map generation constants.
const (
	genRockPercent  = 45
	genSmoothPasses = 4
	genRockNeighbor = 5
	genStartClear   = 6
	genSiteClear    = 3
)

// Generate builds the symmetric cave map for a seed. It uses its own LCG
// stream, so generating a map never advances a snapshot's generator.
func Generate(seed uint32, width, height int32) *TileMap {
	m := NewTileMap(width, height)
	rng := NewRand(seed)
	halfW := (width + 1) / 2

	// Scatter rock over the left half.
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < halfW; x++ {
			rng.State = rng.State*lcgMul + lcgInc
			if rng.State%100 < genRockPercent {
				m.Set(x, y, Rock)
			}
		}
	}

	// Smooth: a cell becomes rock when at least 5 of its 3x3 block are rock.
	for range genSmoothPasses {
		next := append([]Tile(nil), m.Tiles...)
		for y := int32(0); y < height; y++ {
			for x := int32(0); x < halfW; x++ {
				rocks := 0
				for dy := int32(-1); dy <= 1; dy++ {
					for dx := int32(-1); dx <= 1; dx++ {
						if m.At(x+dx, y+dy) == Rock {
							rocks++
						}
					}
				}
				if rocks >= genRockNeighbor {
					next[y*width+x] = Rock
				} else {
					next[y*width+x] = Dirt
				}
			}
		}
		m.Tiles = next
	}

	// Mirror left half onto the right half.
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < halfW; x++ {
			m.Tiles[y*width+(width-1-x)] = m.Tiles[y*width+x]
		}
	}

	m.Starts = []Point{
		{width / 4, height / 2},
		{width - 1 - width/4, height / 2},
	}
	m.clearSymmetric(m.Starts[0], genStartClear)

	m.Sites = []Point{
		{width / 2, height / 4},
		{width / 2, 3 * height / 4},
	}
	for _, site := range m.Sites {
		m.clearSymmetric(site, genSiteClear)
	}
	m.addBorder()
	return m
}

// clearSymmetric digs a disc and its horizontal mirror.
func (m *TileMap) clearSymmetric(c Point, radius int32) {
	mirrorX := m.Width - 1 - c.X
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				m.Set(c.X+dx, c.Y+dy, Dirt)
				m.Set(mirrorX+dx, c.Y+dy, Dirt)
			}
		}
	}
}
