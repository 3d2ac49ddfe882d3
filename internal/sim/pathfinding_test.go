package sim

import (
	"slices"
	"testing"
)

func TestFindPath(t *testing.T) {
	tests := []struct {
		name     string
		rows     []string
		start    Point
		goal     Point
		expected []Point
	}{
		{
			name:     "straight line",
			rows:     []string{".....", ".....", "....."},
			start:    Point{0, 1},
			goal:     Point{3, 1},
			expected: []Point{{1, 1}, {2, 1}, {3, 1}},
		},
		{
			name:     "pure diagonal",
			rows:     []string{"....", "....", "....", "...."},
			start:    Point{0, 0},
			goal:     Point{3, 3},
			expected: []Point{{1, 1}, {2, 2}, {3, 3}},
		},
		{
			name:     "start equals goal",
			rows:     []string{"..."},
			start:    Point{1, 0},
			goal:     Point{1, 0},
			expected: nil,
		},
		{
			name:     "goal is rock",
			rows:     []string{"..X"},
			start:    Point{0, 0},
			goal:     Point{2, 0},
			expected: nil,
		},
		{
			name:     "walled off",
			rows:     []string{"..X..", "..X..", "..X.."},
			start:    Point{0, 1},
			goal:     Point{4, 1},
			expected: nil,
		},
		{
			name:     "no corner cutting",
			rows:     []string{".X", "X."},
			start:    Point{0, 0},
			goal:     Point{1, 1},
			expected: nil,
		},
		{
			name:     "one blocked corner still forbids the diagonal",
			rows:     []string{".X", ".."},
			start:    Point{0, 0},
			goal:     Point{1, 1},
			expected: []Point{{0, 1}, {1, 1}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := ParseTileMap(tc.rows...)
			got := FindPath(m, tc.start, tc.goal)
			if !slices.Equal(got, tc.expected) {
				t.Errorf("FindPath() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestFindPathAvoidsRock(t *testing.T) {
	m := ParseTileMap(
		"..........",
		"..XXXXXX..",
		"..X....X..",
		"..X.XX.X..",
		"..X..X....",
		"..XXXX.X..",
		"..........",
	)
	start, goal := Point{0, 0}, Point{4, 4}
	path := FindPath(m, start, goal)
	if len(path) == 0 {
		t.Fatal("FindPath() found no route")
	}
	if path[len(path)-1] != goal {
		t.Errorf("route ends at %v, expected %v", path[len(path)-1], goal)
	}
	prev := start
	for _, p := range path {
		if !m.Walkable(p.X, p.Y) {
			t.Fatalf("route crosses rock at %v", p)
		}
		dx, dy := p.X-prev.X, p.Y-prev.Y
		if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
			t.Fatalf("non-adjacent step %v -> %v", prev, p)
		}
		if dx != 0 && dy != 0 && (!m.Walkable(prev.X+dx, prev.Y) || !m.Walkable(prev.X, prev.Y+dy)) {
			t.Fatalf("diagonal corner cut %v -> %v", prev, p)
		}
		prev = p
	}
}

func TestFindPathDeterministic(t *testing.T) {
	// Many equal-cost routes exist; the heap ordering must pick one.
	m := OpenTileMap(20, 20)
	m.Set(8, 5, Rock)
	m.Set(8, 6, Rock)
	start, goal := Point{2, 2}, Point{17, 9}
	a := FindPath(m, start, goal)
	if len(a) == 0 {
		t.Fatal("FindPath() found no route")
	}
	for range 5 {
		b := FindPath(m.Clone(), start, goal)
		if !slices.Equal(a, b) {
			t.Fatalf("FindPath() = %v, expected %v", b, a)
		}
	}
}

func TestOctile(t *testing.T) {
	if got := octile(Point{0, 0}, Point{3, 1}); got != 1414+2000 {
		t.Errorf("octile() = %d, expected %d", got, 1414+2000)
	}
}
