package race

import "strings"

// Level is a difficulty profile: how big the maze is and how long the
// player has to solve it.
type Level struct {
	ID         string
	Size       int
	TimeBudget int // seconds
	Name       string
}

// Level presets, smallest first.
var (
	Beginner = Level{ID: "beginner", Size: 15, TimeBudget: 180, Name: "Beginner"}
	Advanced = Level{ID: "advanced", Size: 25, TimeBudget: 420, Name: "Advanced"}
	Expert   = Level{ID: "expert", Size: 37, TimeBudget: 600, Name: "Expert"}
)

// DefaultLevel is used whenever no valid level was selected.
var DefaultLevel = Beginner

// Levels returns the presets in ascending difficulty.
func Levels() []Level {
	return []Level{Beginner, Advanced, Expert}
}

// LevelByID looks up a preset. Unknown or empty ids fall back to
// DefaultLevel and ok is false.
func LevelByID(id string) (level Level, ok bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, l := range Levels() {
		if l.ID == id {
			return l, true
		}
	}
	return DefaultLevel, false
}
