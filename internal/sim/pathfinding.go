package sim

import "container/heap"

// Step costs in the same scale as milli-tiles.
const (
	costCardinal = 1000
	costDiagonal = 1414
)

// Neighbour expansion order. Ties are decided by the heap ordering, so this
// order only affects which equal-cost parent is seen first.
var pathDirs = [8]Point{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

type pathNode struct {
	pos   Point
	g, f  int64
	index int
}

// pathQueue orders open nodes by f, then row, then column, then g.
type pathQueue []*pathNode

func (q pathQueue) Len() int { return len(q) }

func (q pathQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.pos.Y != b.pos.Y {
		return a.pos.Y < b.pos.Y
	}
	if a.pos.X != b.pos.X {
		return a.pos.X < b.pos.X
	}
	return a.g < b.g
}

func (q pathQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *pathQueue) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *pathQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*q = old[:len(old)-1]
	return n
}

// octile is the admissible heuristic matching the step costs.
func octile(a, b Point) int64 {
	dx := int64(a.X - b.X)
	if dx < 0 {
		dx = -dx
	}
	dy := int64(a.Y - b.Y)
	if dy < 0 {
		dy = -dy
	}
	lo, hi := min(dx, dy), max(dx, dy)
	return costDiagonal*lo + costCardinal*(hi-lo)
}

// FindPath returns the tile route from start to goal, excluding start and
// including goal. It returns nil when the goal is unreachable, when either
// end is rock, or when start equals goal. Diagonal steps need both adjacent
// orthogonal tiles to be walkable.
func FindPath(m *TileMap, start, goal Point) []Point {
	if start == goal || !m.Walkable(start.X, start.Y) || !m.Walkable(goal.X, goal.Y) {
		return nil
	}

	w := m.Width
	idx := func(p Point) int32 { return p.Y*w + p.X }
	size := int(w) * int(m.Height)

	gScore := make([]int64, size)
	for i := range gScore {
		gScore[i] = -1
	}
	cameFrom := make([]int32, size)
	closed := make([]bool, size)

	open := &pathQueue{}
	gScore[idx(start)] = 0
	cameFrom[idx(start)] = -1
	heap.Push(open, &pathNode{pos: start, g: 0, f: octile(start, goal)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		ci := idx(cur.pos)
		if closed[ci] {
			continue
		}
		if cur.pos == goal {
			return buildPath(cameFrom, w, start, goal)
		}
		closed[ci] = true

		for _, d := range pathDirs {
			n := Point{cur.pos.X + d.X, cur.pos.Y + d.Y}
			if !m.Walkable(n.X, n.Y) {
				continue
			}
			cost := int64(costCardinal)
			if d.X != 0 && d.Y != 0 {
				if !m.Walkable(cur.pos.X+d.X, cur.pos.Y) || !m.Walkable(cur.pos.X, cur.pos.Y+d.Y) {
					continue
				}
				cost = costDiagonal
			}
			ni := idx(n)
			if closed[ni] {
				continue
			}
			g := cur.g + cost
			if gScore[ni] >= 0 && g >= gScore[ni] {
				continue
			}
			gScore[ni] = g
			cameFrom[ni] = ci
			heap.Push(open, &pathNode{pos: n, g: g, f: g + octile(n, goal)})
		}
	}
	return nil
}

func buildPath(cameFrom []int32, w int32, start, goal Point) []Point {
	var rev []Point
	for p := goal; p != start; {
		rev = append(rev, p)
		prev := cameFrom[p.Y*w+p.X]
		p = Point{prev % w, prev / w}
	}
	path := make([]Point, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}
