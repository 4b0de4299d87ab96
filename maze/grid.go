package maze

import (
	"strings"
)

// Cell is the kind of a single maze square.
type Cell uint8

// Cell kinds. The zero value is a wall so a fresh grid starts fully walled.
const (
	Wall Cell = iota
	Path
	PlayerMarker
	OpponentMarker
	ExitMarker
)

// Glyphs used by the text form of a grid.
const (
	WallGlyph     = '#'
	PathGlyph     = ' '
	PlayerGlyph   = 'P'
	OpponentGlyph = 'C'
	ExitGlyph     = 'E'
)

func (c Cell) String() string {
	switch c {
	case Wall:
		return "wall"
	case Path:
		return "path"
	case PlayerMarker:
		return "player"
	case OpponentMarker:
		return "opponent"
	case ExitMarker:
		return "exit"
	default:
		return "unknown"
	}
}

// Glyph returns the rune used for c in text renderings.
func (c Cell) Glyph() rune {
	switch c {
	case Path:
		return PathGlyph
	case PlayerMarker:
		return PlayerGlyph
	case OpponentMarker:
		return OpponentGlyph
	case ExitMarker:
		return ExitGlyph
	default:
		return WallGlyph
	}
}

// Position is a grid coordinate. X is the column, Y is the row.
type Position struct {
	X, Y int
}

// Add returns p moved by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Grid is a square matrix of cells stored row-major.
type Grid struct {
	size  int
	cells []Cell
}

// NewGrid returns a size x size grid filled with walls.
func NewGrid(size int) *Grid {
	return &Grid{size: size, cells: make([]Cell, size*size)}
}

// Size returns the side length of the grid.
func (g *Grid) Size() int {
	return g.size
}

// Index flattens p into the backing slice index.
func (g *Grid) Index(p Position) int {
	return p.Y*g.size + p.X
}

// InBounds reports whether p lies anywhere on the grid, outer ring included.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.size && p.Y >= 0 && p.Y < g.size
}

// IsInterior reports whether p lies strictly inside the outer wall ring.
func (g *Grid) IsInterior(p Position) bool {
	return p.X > 0 && p.X < g.size-1 && p.Y > 0 && p.Y < g.size-1
}

// At returns the cell at p. Out of bounds reads as Wall.
func (g *Grid) At(p Position) Cell {
	if !g.InBounds(p) {
		return Wall
	}
	return g.cells[g.Index(p)]
}

// Set overwrites the cell at p. Out of bounds writes are ignored.
func (g *Grid) Set(p Position, c Cell) {
	if !g.InBounds(p) {
		return
	}
	g.cells[g.Index(p)] = c
}

// IsWall reports whether p is a wall or off the grid.
func (g *Grid) IsWall(p Position) bool {
	return g.At(p) == Wall
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return &Grid{size: g.size, cells: cells}
}

// Rows renders the grid as one string per row using the cell glyphs.
func (g *Grid) Rows() []string {
	rows := make([]string, g.size)
	var b strings.Builder
	for y := 0; y < g.size; y++ {
		b.Reset()
		for x := 0; x < g.size; x++ {
			b.WriteRune(g.cells[y*g.size+x].Glyph())
		}
		rows[y] = b.String()
	}
	return rows
}

func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}

// CarvedCells counts every non-wall cell.
func (g *Grid) CarvedCells() int {
	n := 0
	for _, c := range g.cells {
		if c != Wall {
			n++
		}
	}
	return n
}

// CarvedEdges counts orthogonally adjacent pairs of non-wall cells.
// A perfect maze has exactly CarvedCells()-1 of them.
func (g *Grid) CarvedEdges() int {
	n := 0
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			if g.cells[y*g.size+x] == Wall {
				continue
			}
			if x+1 < g.size && g.cells[y*g.size+x+1] != Wall {
				n++
			}
			if y+1 < g.size && g.cells[(y+1)*g.size+x] != Wall {
				n++
			}
		}
	}
	return n
}

// ParseRows builds a grid from its text form. Unknown glyphs become walls.
// It is the inverse of Rows and is mostly useful for fixtures.
func ParseRows(rows []string) *Grid {
	g := NewGrid(len(rows))
	for y, row := range rows {
		for x, r := range []rune(row) {
			if x >= g.size {
				break
			}
			var c Cell
			switch r {
			case PathGlyph, '.':
				c = Path
			case PlayerGlyph:
				c = PlayerMarker
			case OpponentGlyph:
				c = OpponentMarker
			case ExitGlyph:
				c = ExitMarker
			default:
				c = Wall
			}
			g.cells[y*g.size+x] = c
		}
	}
	return g
}
