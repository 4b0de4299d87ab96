// Package pathfinder finds shortest walkable routes on square maze grids.
package pathfinder

import (
	"github.com/beka-birhanu/maze-race/maze"
)

// Walkable is the view of a grid the search needs.
type Walkable interface {
	Size() int
	IsWall(p maze.Position) bool
}

const unvisited = -1

var steps = [4]maze.Position{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}

// ShortestPath runs A* with a Manhattan heuristic from start to goal.
// The result starts with start and ends with goal; it is nil when goal
// cannot be reached. Only interior, non-wall cells are walkable.
func ShortestPath(g Walkable, start, goal maze.Position) []maze.Position {
	size := g.Size()
	if !walkable(g, size, start) || !walkable(g, size, goal) {
		return nil
	}

	n := size * size
	gScore := make([]int, n)
	cameFrom := make([]int, n)
	closed := make([]bool, n)
	for i := range gScore {
		gScore[i] = unvisited
		cameFrom[i] = unvisited
	}

	startIdx := start.Y*size + start.X
	goalIdx := goal.Y*size + goal.X
	gScore[startIdx] = 0

	seq := 0
	frontier := make(minHeap, 0, n/4)
	frontier.push(entry{idx: startIdx, f: manhattan(start, goal), seq: seq})

	for len(frontier) > 0 {
		cur := frontier.pop()
		if closed[cur.idx] {
			// Stale entry superseded by a cheaper push.
			continue
		}
		if cur.idx == goalIdx {
			return reconstruct(cameFrom, size, goalIdx)
		}
		closed[cur.idx] = true

		pos := maze.Position{X: cur.idx % size, Y: cur.idx / size}
		for _, d := range steps {
			next := pos.Add(d)
			if !walkable(g, size, next) {
				continue
			}
			nIdx := next.Y*size + next.X
			if closed[nIdx] {
				continue
			}
			tentative := gScore[cur.idx] + 1
			if gScore[nIdx] != unvisited && tentative >= gScore[nIdx] {
				continue
			}
			cameFrom[nIdx] = cur.idx
			gScore[nIdx] = tentative
			seq++
			frontier.push(entry{idx: nIdx, f: tentative + manhattan(next, goal), seq: seq})
		}
	}
	return nil
}

// Distance returns the number of steps on the shortest path, or -1.
func Distance(g Walkable, start, goal maze.Position) int {
	path := ShortestPath(g, start, goal)
	if path == nil {
		return -1
	}
	return len(path) - 1
}

func walkable(g Walkable, size int, p maze.Position) bool {
	return p.X > 0 && p.X < size-1 && p.Y > 0 && p.Y < size-1 && !g.IsWall(p)
}

func manhattan(a, b maze.Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func reconstruct(cameFrom []int, size, idx int) []maze.Position {
	length := 1
	for i := idx; cameFrom[i] != unvisited; i = cameFrom[i] {
		length++
	}
	path := make([]maze.Position, length)
	for i, k := idx, length-1; k >= 0; i, k = cameFrom[i], k-1 {
		path[k] = maze.Position{X: i % size, Y: i / size}
	}
	return path
}
