// Package race holds the turn-based state machine of a single maze race
// between the player and the computer opponent.
//
// A Race is not safe for concurrent use; the game driver in package service
// serializes every call.
package race

import (
	"errors"
	"time"

	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/pathfinder"
)

// Race construction errors.
var (
	ErrSizeMismatch = errors.New("grid size does not match level")
	ErrInvalidGrid  = errors.New("grid is missing a start or exit marker")
)

// Race is the state of one game: grid, actor positions, exit, turn,
// countdown and, once over, the outcome.
type Race struct {
	level     Level
	grid      *maze.Grid
	player    maze.Position
	opponent  maze.Position
	exit      maze.Position
	turn      Turn
	remaining int
	outcome   Outcome
	result    Result
	now       func() time.Time
}

// Option customises a Race.
type Option func(*Race)

// WithClock sets the clock used to timestamp the result.
func WithClock(now func() time.Time) Option {
	return func(r *Race) {
		r.now = now
	}
}

// New starts a race on grid, which must come from maze.Generate (or have
// the same marker layout) and match the level size.
func New(level Level, grid *maze.Grid, opts ...Option) (*Race, error) {
	if grid.Size() != level.Size {
		return nil, ErrSizeMismatch
	}

	size := grid.Size()
	r := &Race{
		level:     level,
		grid:      grid,
		player:    maze.PlayerStart(size),
		opponent:  maze.OpponentStart(size),
		exit:      maze.ExitPosition(size),
		turn:      TurnPlayer,
		remaining: level.TimeBudget,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if grid.At(r.player) != maze.PlayerMarker ||
		grid.At(r.opponent) != maze.OpponentMarker ||
		grid.At(r.exit) != maze.ExitMarker {
		return nil, ErrInvalidGrid
	}
	return r, nil
}

// AttemptMove moves the player one cell in dir. Only valid on the player's
// turn; walls and the outer ring reject the move. The player may share a
// cell with the opponent.
func (r *Race) AttemptMove(dir Direction) MoveResult {
	if r.outcome != OutcomeNone || r.turn != TurnPlayer {
		return MoveResult{}
	}

	offset := dir.Offset()
	if offset == (maze.Position{}) {
		return MoveResult{}
	}

	next := r.player.Add(offset)
	if !r.grid.IsInterior(next) || r.grid.IsWall(next) {
		return MoveResult{}
	}

	r.step(&r.player, next, r.opponent, maze.PlayerMarker, maze.OpponentMarker)
	if r.player == r.exit {
		r.end(OutcomePlayerWin)
		return MoveResult{Accepted: true, Ended: true}
	}

	r.turn = TurnOpponent
	return MoveResult{Accepted: true, OpponentDue: true}
}

// OpponentMove advances the opponent one step along a freshly computed
// shortest path to the exit. When there is no usable step the opponent
// forfeits it. The player never blocks the step. It reports whether the
// call did anything.
func (r *Race) OpponentMove() bool {
	if r.outcome != OutcomeNone || r.turn != TurnOpponent {
		return false
	}

	path := pathfinder.ShortestPath(r.grid, r.opponent, r.exit)
	if len(path) > 1 {
		r.step(&r.opponent, path[1], r.player, maze.OpponentMarker, maze.PlayerMarker)
		if r.opponent == r.exit {
			r.end(OutcomeOpponentWin)
			return true
		}
	}

	r.turn = TurnPlayer
	return true
}

// Tick consumes one second of the countdown and ends the race with a
// timeout when it reaches zero.
func (r *Race) Tick() bool {
	if r.outcome != OutcomeNone {
		return false
	}

	r.remaining--
	if r.remaining <= 0 {
		r.remaining = 0
		r.end(OutcomeTimeout)
	}
	return true
}

// Ended reports whether the race is over.
func (r *Race) Ended() bool {
	return r.outcome != OutcomeNone
}

// Outcome returns the outcome, OutcomeNone while running.
func (r *Race) Outcome() Outcome {
	return r.outcome
}

// Result returns the final result. ok is false while the race is running.
func (r *Race) Result() (res Result, ok bool) {
	return r.result, r.outcome != OutcomeNone
}

// Turn returns whose turn it is.
func (r *Race) Turn() Turn {
	return r.turn
}

// Remaining returns the seconds left on the countdown.
func (r *Race) Remaining() int {
	return r.remaining
}

// Level returns the level being played.
func (r *Race) Level() Level {
	return r.level
}

// Player returns the player position.
func (r *Race) Player() maze.Position {
	return r.player
}

// Opponent returns the opponent position.
func (r *Race) Opponent() maze.Position {
	return r.opponent
}

// Exit returns the exit position.
func (r *Race) Exit() maze.Position {
	return r.exit
}

// Snapshot copies the state for presentation.
func (r *Race) Snapshot() Snapshot {
	return Snapshot{
		Level:     r.level,
		Size:      r.grid.Size(),
		Rows:      r.grid.Rows(),
		Player:    r.player,
		Opponent:  r.opponent,
		Exit:      r.exit,
		Turn:      r.turn,
		Remaining: r.remaining,
		Outcome:   r.outcome,
	}
}

// step moves an actor marker from *pos to next. The mover's marker covers
// whatever it lands on. The vacated cell shows the other actor if it is
// still there, else ExitMarker on the exit, else Path.
func (r *Race) step(pos *maze.Position, next, other maze.Position, marker, otherMarker maze.Cell) {
	vacated := maze.Path
	switch *pos {
	case other:
		vacated = otherMarker
	case r.exit:
		vacated = maze.ExitMarker
	}
	r.grid.Set(*pos, vacated)
	r.grid.Set(next, marker)
	*pos = next
}

func (r *Race) end(o Outcome) {
	r.outcome = o
	r.result = Result{
		Level:   r.level,
		Outcome: o,
		Elapsed: r.level.TimeBudget - r.remaining,
		EndedAt: r.now().UTC(),
	}
}
