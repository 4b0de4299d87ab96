package service

import (
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service/i"
)

// Pump forwards every snapshot of g to p until the game finishes, then
// shows the final state and, when the race was decided, the end message.
// It returns the final snapshot.
func Pump(g i.GameServer, p i.Presenter) race.Snapshot {
	states := g.StateChan()
	ends := g.EndChan()
	for {
		select {
		case s, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			show(p, s)
		case s, ok := <-ends:
			if !ok {
				// Closed without a final snapshot; fall back to a fresh read.
				s = g.Snapshot()
			}
			show(p, s)
			if s.Ended() {
				p.DisplayGameOver(s.Outcome.Message())
			}
			return s
		}
	}
}

func show(p i.Presenter, s race.Snapshot) {
	p.Render(s)
	p.DisplayCountdown(s.Countdown())
}
