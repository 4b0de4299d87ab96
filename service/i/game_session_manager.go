package i

import (
	"context"

	"github.com/beka-birhanu/maze-race/race"
	"github.com/google/uuid"
)

// GameSessionManager manages game sessions, one live session per client.
type GameSessionManager interface {
	// NewSession starts a game for the client at the given level, stopping
	// the client's previous game first.
	NewSession(clientID uuid.UUID, levelID string) (uuid.UUID, error)

	// Move forwards a player move to the client's game.
	Move(ctx context.Context, clientID uuid.UUID, dir race.Direction) (race.MoveResult, error)

	// Snapshot returns the state of the client's game.
	Snapshot(clientID uuid.UUID) (race.Snapshot, error)

	// SessionOf returns the client's current session.
	SessionOf(clientID uuid.UUID) (uuid.UUID, bool)

	// Subscribe attaches a presenter to a session until cancel is called or
	// the game ends. Presenters that are also io.Closer are closed at the end.
	Subscribe(sessionID uuid.UUID, p Presenter) (cancel func(), err error)

	StopAll()
}
