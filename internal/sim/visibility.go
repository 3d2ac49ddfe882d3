package sim

// Visibility values.
const (
	Unexplored uint8 = iota
	Fogged
	Visible
)

// VisGrid is one player's fog-of-war state, row-major like TileMap.
type VisGrid struct {
	Width  int32
	Height int32
	Cells  []uint8
}

// NewVisGrid creates an all-unexplored grid.
func NewVisGrid(width, height int32) *VisGrid {
	return &VisGrid{Width: width, Height: height, Cells: make([]uint8, int(width)*int(height))}
}

// At returns the visibility of a tile; out-of-bounds is unexplored.
func (v *VisGrid) At(x, y int32) uint8 {
	if x < 0 || y < 0 || x >= v.Width || y >= v.Height {
		return Unexplored
	}
	return v.Cells[y*v.Width+x]
}

// IsVisible reports whether a tile is currently in sight.
func (v *VisGrid) IsVisible(x, y int32) bool {
	return v.At(x, y) == Visible
}

// Clone returns a deep copy.
func (v *VisGrid) Clone() *VisGrid {
	c := *v
	c.Cells = append([]uint8(nil), v.Cells...)
	return &c
}

// reveal marks every tile within radius of (cx, cy) visible.
func (v *VisGrid) reveal(cx, cy, radius int32) {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		y := cy + dy
		if y < 0 || y >= v.Height {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			x := cx + dx
			if x < 0 || x >= v.Width || dx*dx+dy*dy > r2 {
				continue
			}
			v.Cells[y*v.Width+x] = Visible
		}
	}
}

// updateVisibility demotes all visible tiles to fog, then re-reveals around
// every entity each player owns.
func (s *State) updateVisibility() {
	for p := range Players {
		grid := s.Vis[p]
		for i, c := range grid.Cells {
			if c == Visible {
				grid.Cells[i] = Fogged
			}
		}
		for _, e := range s.Entities.All() {
			if e.Owner != PlayerID(p) || e.Sight <= 0 {
				continue
			}
			grid.reveal(ToTile(e.X), ToTile(e.Y), e.Sight)
		}
	}
}
