package i

import (
	"context"

	"github.com/beka-birhanu/maze-race/race"
)

// GameServer defines the interface for a running maze race.
type GameServer interface {
	// Start runs the game loop until the race ends or Stop is called.
	Start()

	// Stop halts the countdown and any pending opponent move and waits for
	// the loop to exit.
	Stop()

	// Move submits a player move and reports what the race made of it.
	Move(ctx context.Context, dir race.Direction) (race.MoveResult, error)

	// Snapshot returns the current state.
	Snapshot() race.Snapshot

	// StateChan returns the state change channel.
	StateChan() <-chan race.Snapshot

	// EndChan returns the end channel for the game.
	EndChan() <-chan race.Snapshot
}
