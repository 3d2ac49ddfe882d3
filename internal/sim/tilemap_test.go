package sim

import (
	"slices"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(99, 100, 100)
	b := Generate(99, 100, 100)
	if !slices.Equal(a.Tiles, b.Tiles) {
		t.Fatal("Generate() produced different maps for the same seed")
	}
	c := Generate(100, 100, 100)
	if slices.Equal(a.Tiles, c.Tiles) {
		t.Error("Generate() produced identical maps for different seeds")
	}
}

func TestGenerateLayout(t *testing.T) {
	tests := []struct {
		name string
		seed uint32
		w, h int32
	}{
		{"default size", 1, 100, 100},
		{"odd width", 7, 61, 40},
		{"small", 3, 24, 24},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := Generate(tc.seed, tc.w, tc.h)
			for y := int32(0); y < tc.h; y++ {
				for x := int32(0); x < tc.w; x++ {
					if m.At(x, y) != m.At(tc.w-1-x, y) {
						t.Fatalf("tile (%d,%d) is not mirrored", x, y)
					}
					border := x == 0 || y == 0 || x == tc.w-1 || y == tc.h-1
					if border && m.At(x, y) != Rock {
						t.Fatalf("border tile (%d,%d) is not rock", x, y)
					}
				}
			}
			if len(m.Starts) != Players {
				t.Fatalf("len(Starts) = %d, expected %d", len(m.Starts), Players)
			}
			for _, p := range append(slices.Clone(m.Starts), m.Sites...) {
				if !m.Walkable(p.X, p.Y) {
					t.Errorf("start/site %v is not walkable", p)
				}
			}
		})
	}
}

func TestTileMapOutOfBounds(t *testing.T) {
	m := NewTileMap(3, 3)
	for _, p := range []Point{{-1, 0}, {0, -1}, {3, 0}, {0, 3}} {
		if m.Walkable(p.X, p.Y) {
			t.Errorf("Walkable(%d,%d) = true outside the map", p.X, p.Y)
		}
	}
	m.Set(5, 5, Dirt) // ignored
	if !m.Walkable(1, 1) {
		t.Error("Walkable(1,1) = false on an all-dirt map")
	}
}

func TestNearestWalkable(t *testing.T) {
	m := ParseTileMap(
		"XXXXX",
		"XXXXX",
		"XX.XX",
		"XXXXX",
		".XXXX",
	)
	tests := []struct {
		name     string
		from     Point
		expected Point
	}{
		{"already walkable", Point{2, 2}, Point{2, 2}},
		{"adjacent ring", Point{2, 1}, Point{2, 2}},
		{"corner", Point{0, 3}, Point{0, 4}},
		{"far corner", Point{4, 0}, Point{2, 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := m.NearestWalkable(tc.from.X, tc.from.Y)
			if !ok {
				t.Fatal("NearestWalkable() found nothing")
			}
			if got != tc.expected {
				t.Errorf("NearestWalkable() = %v, expected %v", got, tc.expected)
			}
		})
	}

	solid := ParseTileMap("XX", "XX")
	if _, ok := solid.NearestWalkable(0, 0); ok {
		t.Error("NearestWalkable() succeeded on a solid map")
	}
}

func TestParseTileMapString(t *testing.T) {
	rows := []string{"..X", "X..", "..."}
	m := ParseTileMap(rows...)
	if got := m.String(); got != "..X\nX..\n..." {
		t.Errorf("String() = %q", got)
	}
}
