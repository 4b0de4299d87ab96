// Command terminal plays the maze race locally in a terminal window.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/beka-birhanu/maze-race/config"
	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/beka-birhanu/maze-race/service/i"
	"github.com/beka-birhanu/maze-race/store"
	"github.com/beka-birhanu/maze-race/tui"
	"github.com/gdamore/tcell/v2"
)

func main() {
	levelID := flag.String("level", race.DefaultLevel.ID, "difficulty: beginner, advanced or expert")
	seed := flag.Int64("seed", 0, "maze seed, 0 for random (overrides MAZE_SEED)")
	logFile := flag.String("log", "", "write logs to this file")
	mute := flag.Bool("mute", false, "disable sound")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Loading config: %v\n", err)
		os.Exit(1)
	}
	if *seed == 0 {
		*seed = cfg.MazeSeed
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Unknown log level %q, keeping info\n", cfg.LogLevel)
	}

	// The screen owns stdout, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	appLogger, _ := logger.New("TERMINAL", config.ColorGreen, logOut)

	var results i.ResultStore = store.NewMemory()
	if cfg.ResultsFile != "" {
		results = store.NewFS(cfg.ResultsFile)
	}

	level, ok := race.LevelByID(*levelID)
	if !ok {
		appLogger.Warning(fmt.Sprintf("Unknown level %q, using %s", *levelID, level.ID))
	}

	generator := maze.NewGenerator(*seed)
	newGame := func(l race.Level) (*service.Game, error) {
		grid, err := generator.Generate(l.Size)
		if err != nil {
			return nil, err
		}
		return service.NewGame(l, grid,
			service.WithStore(results),
			service.WithLogger(appLogger),
			service.WithTickInterval(cfg.TickInterval),
			service.WithOpponentDelay(cfg.OpponentDelay),
		)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	var sound *tui.Sound
	if !*mute {
		sound, err = tui.NewSound()
		if err != nil {
			// Non-fatal, the game runs without sound.
			appLogger.Warning(fmt.Sprintf("Audio initialization failed: %v", err))
		}
		defer sound.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := tui.NewApp(screen, newGame, level, sound, appLogger)
	if err := app.Run(ctx); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
