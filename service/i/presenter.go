package i

import (
	"github.com/beka-birhanu/maze-race/race"
)

// Presenter displays a game to a player.
type Presenter interface {
	// Render draws the grid and actors.
	Render(s race.Snapshot)

	// DisplayCountdown shows the remaining time as MM:SS.
	DisplayCountdown(mmss string)

	// DisplayGameOver shows the end-of-game message.
	DisplayGameOver(message string)
}
