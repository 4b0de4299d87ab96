package tui

import (
	"context"
	"fmt"

	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/gdamore/tcell/v2"
)

// GameFactory builds a fresh, unstarted game for a level.
type GameFactory func(level race.Level) (*service.Game, error)

// App is the terminal client: one local game at a time, driven by keys.
type App struct {
	screen  tcell.Screen
	view    *Screen
	newGame GameFactory
	sound   *Sound
	logger  logger.Logger

	level  race.Level
	game   *service.Game
	pumped chan struct{}
}

// NewApp creates the client on an initialised screen. sound may be nil.
func NewApp(s tcell.Screen, newGame GameFactory, level race.Level, sound *Sound, l logger.Logger) *App {
	if l == nil {
		l = logger.Nop()
	}
	return &App{
		screen:  s,
		view:    NewScreen(s),
		newGame: newGame,
		sound:   sound,
		logger:  l,
		level:   level,
	}
}

// Run plays until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(a.level); err != nil {
		return err
	}
	defer a.stop()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				a.view.Redraw()
			case *tcell.EventKey:
				done, err := a.handle(ctx, KeyCommand(ev))
				if err != nil || done {
					return err
				}
			}
		}
	}
}

func (a *App) handle(ctx context.Context, cmd Command) (bool, error) {
	switch cmd.Kind {
	case CommandQuit:
		return true, nil
	case CommandNewGame:
		return false, a.start(a.level)
	case CommandLevel:
		return false, a.start(cmd.Level)
	case CommandMove:
		res, err := a.game.Move(ctx, cmd.Dir)
		if err != nil {
			// The game is over; keys wait for n, 1/2/3 or q.
			return false, nil
		}
		if res.Accepted {
			a.sound.Step()
		}
	}
	return false, nil
}

// start replaces the running game with a new one at level.
func (a *App) start(level race.Level) error {
	a.stop()

	game, err := a.newGame(level)
	if err != nil {
		return fmt.Errorf("creating game: %w", err)
	}
	a.level = level
	a.game = game
	a.pumped = make(chan struct{})

	go game.Start()
	go func(done chan struct{}) {
		defer close(done)
		final := service.Pump(game, a.view)
		a.sound.GameOver(final.Outcome)
	}(a.pumped)

	a.logger.Info(fmt.Sprintf("started %s game %s", level.Name, game.SessionID()))
	return nil
}

func (a *App) stop() {
	if a.game == nil {
		return
	}
	a.game.Stop()
	<-a.pumped
	a.game = nil
}
