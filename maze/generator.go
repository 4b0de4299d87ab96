package maze

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// MinSize is the smallest grid that still has an interior to carve.
const MinSize = 5

// ErrInvalidSize is returned for even sizes or sizes below MinSize.
var ErrInvalidSize = errors.New("maze size must be odd and at least 5")

// Start positions and the exit are fixed by convention for every size.
func PlayerStart(size int) Position   { return Position{X: 1, Y: 1} }
func OpponentStart(size int) Position { return Position{X: size - 2, Y: 1} }
func ExitPosition(size int) Position  { return Position{X: size / 2, Y: size - 2} }

// 2-step moves between rooms: up, down, left, right.
var jumps = [4]Position{{0, -2}, {0, 2}, {-2, 0}, {2, 0}}

// frame is one level of the carving walk. dirs is shuffled once when the
// frame is pushed and next is the cursor into it.
type frame struct {
	at   Position
	dirs [4]Position
	next int
}

// Generator produces mazes from its own random source. It is safe for
// concurrent use.
type Generator struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewGenerator returns a generator seeded with seed, or with the clock when
// seed is zero.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate carves a new maze of the given size.
func (g *Generator) Generate(size int) (*Grid, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Generate(size, g.rng)
}

// Generate carves a perfect maze with a randomized backtracker starting at
// (1,1), then places the player, opponent and exit markers.
func Generate(size int, rng *rand.Rand) (*Grid, error) {
	if size < MinSize || size%2 == 0 {
		return nil, ErrInvalidSize
	}

	grid := NewGrid(size)
	parent := carve(grid, PlayerStart(size), rng)
	openExit(grid, parent)

	grid.Set(PlayerStart(size), PlayerMarker)
	grid.Set(OpponentStart(size), OpponentMarker)
	grid.Set(ExitPosition(size), ExitMarker)
	return grid, nil
}

// carve runs the backtracker with an explicit stack and returns, for each
// room, the index of the room it was carved from (-1 for the root and for
// cells that are not rooms).
func carve(grid *Grid, start Position, rng *rand.Rand) []int {
	parent := make([]int, grid.size*grid.size)
	for i := range parent {
		parent[i] = -1
	}

	stack := []*frame{newFrame(start, rng)}
	grid.Set(start, Path)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.dirs) {
			stack = stack[:len(stack)-1]
			continue
		}

		d := top.dirs[top.next]
		top.next++

		next := top.at.Add(d)
		if !grid.IsInterior(next) || grid.At(next) != Wall {
			continue
		}

		grid.Set(Position{X: top.at.X + d.X/2, Y: top.at.Y + d.Y/2}, Path)
		grid.Set(next, Path)
		parent[grid.Index(next)] = grid.Index(top.at)
		stack = append(stack, newFrame(next, rng))
	}
	return parent
}

func newFrame(at Position, rng *rand.Rand) *frame {
	f := &frame{at: at, dirs: jumps}
	rng.Shuffle(len(f.dirs), func(i, j int) {
		f.dirs[i], f.dirs[j] = f.dirs[j], f.dirs[i]
	})
	return f
}

// openExit makes sure the exit cell is carved. When size/2 is even the exit
// sits on the passage slot between two rooms on the bottom row. Opening it
// closes a loop, so one passage on the existing tree path between those two
// rooms is walled again. The result is still a perfect maze.
func openExit(grid *Grid, parent []int) {
	exit := ExitPosition(grid.size)
	if grid.At(exit) != Wall {
		return
	}

	left := grid.Index(Position{X: exit.X - 1, Y: exit.Y})
	right := grid.Index(Position{X: exit.X + 1, Y: exit.Y})

	// The left room's link to its parent lies on the path to the right room
	// unless the left room is an ancestor of the right one.
	child := left
	if isAncestor(parent, left, right) {
		child = right
	}

	grid.Set(exit, Path)
	grid.Set(between(grid, child, parent[child]), Wall)
}

func isAncestor(parent []int, ancestor, node int) bool {
	for n := node; n != -1; n = parent[n] {
		if n == ancestor {
			return true
		}
	}
	return false
}

func between(grid *Grid, a, b int) Position {
	return Position{
		X: (a%grid.size + b%grid.size) / 2,
		Y: (a/grid.size + b/grid.size) / 2,
	}
}
