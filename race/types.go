package race

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beka-birhanu/maze-race/maze"
)

// ErrUnknownDirection is returned by ParseDirection.
var ErrUnknownDirection = errors.New("unknown direction")

// Direction is one of the four orthogonal moves.
type Direction uint8

const (
	Up Direction = iota + 1
	Down
	Left
	Right
)

var directionNames = map[Direction]string{
	Up:    "up",
	Down:  "down",
	Left:  "left",
	Right: "right",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "none"
}

// Offset returns the unit step for d.
func (d Direction) Offset() maze.Position {
	switch d {
	case Up:
		return maze.Position{X: 0, Y: -1}
	case Down:
		return maze.Position{X: 0, Y: 1}
	case Left:
		return maze.Position{X: -1, Y: 0}
	case Right:
		return maze.Position{X: 1, Y: 0}
	default:
		return maze.Position{}
	}
}

// ParseDirection accepts the direction names case-insensitively.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Turn tells which actor may act next.
type Turn uint8

const (
	TurnPlayer Turn = iota
	TurnOpponent
)

func (t Turn) String() string {
	if t == TurnOpponent {
		return "opponent"
	}
	return "player"
}

// Outcome is the terminal result of a race. OutcomeNone means the race is
// still running.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomePlayerWin
	OutcomeOpponentWin
	OutcomeTimeout
)

// String returns the wire name used in result records.
func (o Outcome) String() string {
	switch o {
	case OutcomePlayerWin:
		return "player"
	case OutcomeOpponentWin:
		return "cpu"
	case OutcomeTimeout:
		return "timeout"
	default:
		return ""
	}
}

// Message is the end-of-game text shown to the player.
func (o Outcome) Message() string {
	switch o {
	case OutcomePlayerWin:
		return "You Won!"
	case OutcomeOpponentWin:
		return "CPU Reached the Exit First!"
	case OutcomeTimeout:
		return "Time's Up! Both Lost!"
	default:
		return ""
	}
}

// Result is produced once, when a race ends.
type Result struct {
	Level   Level
	Outcome Outcome
	Elapsed int // seconds, budget minus remaining countdown
	EndedAt time.Time
}

// MoveResult reports what an AttemptMove did.
type MoveResult struct {
	Accepted bool
	// OpponentDue is set when the move handed the turn to the opponent and
	// the caller should schedule OpponentMove.
	OpponentDue bool
	Ended       bool
}

// Snapshot is a read-only copy of a race for presentation.
type Snapshot struct {
	Level     Level
	Size      int
	Rows      []string
	Player    maze.Position
	Opponent  maze.Position
	Exit      maze.Position
	Turn      Turn
	Remaining int
	Outcome   Outcome
}

// Ended reports whether the snapshot was taken after the race ended.
func (s Snapshot) Ended() bool {
	return s.Outcome != OutcomeNone
}

// Countdown returns the remaining time as MM:SS.
func (s Snapshot) Countdown() string {
	return FormatCountdown(s.Remaining)
}

// FormatCountdown renders seconds as zero-padded MM:SS.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
