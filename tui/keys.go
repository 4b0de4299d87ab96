package tui

import (
	"github.com/beka-birhanu/maze-race/race"
	"github.com/gdamore/tcell/v2"
)

// CommandKind is what a key press asks the terminal client to do.
type CommandKind uint8

const (
	CommandNone CommandKind = iota
	CommandMove
	CommandNewGame
	CommandLevel
	CommandQuit
)

// Command is a decoded key press.
type Command struct {
	Kind  CommandKind
	Dir   race.Direction
	Level race.Level
}

var runeCommands = map[rune]Command{
	'w': {Kind: CommandMove, Dir: race.Up},
	's': {Kind: CommandMove, Dir: race.Down},
	'a': {Kind: CommandMove, Dir: race.Left},
	'd': {Kind: CommandMove, Dir: race.Right},
	'n': {Kind: CommandNewGame},
	'1': {Kind: CommandLevel, Level: race.Beginner},
	'2': {Kind: CommandLevel, Level: race.Advanced},
	'3': {Kind: CommandLevel, Level: race.Expert},
	'q': {Kind: CommandQuit},
}

// KeyCommand maps arrows, WASD and the menu keys to commands.
func KeyCommand(ev *tcell.EventKey) Command {
	switch ev.Key() {
	case tcell.KeyUp:
		return Command{Kind: CommandMove, Dir: race.Up}
	case tcell.KeyDown:
		return Command{Kind: CommandMove, Dir: race.Down}
	case tcell.KeyLeft:
		return Command{Kind: CommandMove, Dir: race.Left}
	case tcell.KeyRight:
		return Command{Kind: CommandMove, Dir: race.Right}
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Command{Kind: CommandQuit}
	case tcell.KeyRune:
		r := ev.Rune()
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		return runeCommands[r]
	}
	return Command{}
}
