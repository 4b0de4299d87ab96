package tui

import (
	"fmt"
	"sync"

	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/gdamore/tcell/v2"
)

// Layout rows, counted from the top of the terminal.
const (
	headerRow = 0
	gridTop   = 2
)

const helpText = "arrows/wasd move  n new game  1/2/3 level  q quit"

var (
	styleDefault  = tcell.StyleDefault
	styleWall     = tcell.StyleDefault.Foreground(tcell.ColorGray).Background(tcell.ColorGray)
	stylePlayer   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleOpponent = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleExit     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleMessage  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleHelp     = tcell.StyleDefault.Foreground(tcell.ColorDarkCyan)
)

// Screen draws a race on a terminal. It implements the session presenter.
type Screen struct {
	screen tcell.Screen

	mu    sync.Mutex
	last  race.Snapshot
	clock string
	over  string
}

// NewScreen wraps an initialised tcell screen.
func NewScreen(s tcell.Screen) *Screen {
	return &Screen{screen: s}
}

// Render draws the grid and actors.
func (v *Screen) Render(s race.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = s
	v.over = ""
	v.draw()
}

// DisplayCountdown updates the clock in the header.
func (v *Screen) DisplayCountdown(mmss string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clock = mmss
	v.drawHeader()
	v.screen.Show()
}

// DisplayGameOver shows message under the grid until the next game renders.
func (v *Screen) DisplayGameOver(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.over = message
	v.drawFooter()
	v.screen.Show()
}

// Redraw repaints the last state, e.g. after a resize.
func (v *Screen) Redraw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.screen.Sync()
	v.draw()
}

func (v *Screen) draw() {
	v.screen.Clear()
	v.drawHeader()
	for y, row := range v.last.Rows {
		for x, r := range row {
			v.screen.SetContent(x, gridTop+y, r, nil, cellStyle(r))
		}
	}
	v.drawFooter()
	v.screen.Show()
}

func (v *Screen) drawHeader() {
	title := "Maze Race"
	if v.last.Level.Name != "" {
		title = fmt.Sprintf("Maze Race - %s", v.last.Level.Name)
	}
	width, _ := v.screen.Size()
	v.clearRow(headerRow, width)
	v.putString(0, headerRow, title, styleDefault)
	if v.clock != "" {
		x := v.last.Size - len(v.clock)
		if x <= len(title) {
			x = len(title) + 2
		}
		v.putString(x, headerRow, v.clock, styleDefault.Bold(true))
	}
}

func (v *Screen) drawFooter() {
	width, _ := v.screen.Size()
	row := gridTop + len(v.last.Rows) + 1
	v.clearRow(row, width)
	if v.over != "" {
		v.putString(0, row, " "+v.over+" ", styleMessage)
	} else if v.last.Turn == race.TurnOpponent {
		v.putString(0, row, "CPU is thinking...", styleDefault)
	}
	v.clearRow(row+1, width)
	v.putString(0, row+1, helpText, styleHelp)
}

func (v *Screen) putString(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *Screen) clearRow(y, width int) {
	for x := 0; x < width; x++ {
		v.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
}

func cellStyle(r rune) tcell.Style {
	switch r {
	case maze.Wall.Glyph():
		return styleWall
	case maze.PlayerMarker.Glyph():
		return stylePlayer
	case maze.OpponentMarker.Glyph():
		return styleOpponent
	case maze.ExitMarker.Glyph():
		return styleExit
	default:
		return styleDefault
	}
}
