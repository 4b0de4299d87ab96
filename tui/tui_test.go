package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureRows = []string{
	"#######",
	"#P   C#",
	"# ### #",
	"#  #  #",
	"## # ##",
	"#  E  #",
	"#######",
}

var testLevel = race.Level{ID: "test", Size: 7, TimeBudget: 90, Name: "Test"}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(60, 20)
	t.Cleanup(s.Fini)
	return s
}

func rowText(s tcell.Screen, y int) string {
	width, _ := s.Size()
	var b strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func screenText(s tcell.Screen) string {
	_, height := s.Size()
	rows := make([]string, height)
	for y := range rows {
		rows[y] = rowText(s, y)
	}
	return strings.Join(rows, "\n")
}

func fixtureSnapshot(t *testing.T) race.Snapshot {
	t.Helper()
	r, err := race.New(testLevel, maze.ParseRows(fixtureRows))
	require.NoError(t, err)
	return r.Snapshot()
}

func TestScreenRender(t *testing.T) {
	sim := newSimScreen(t)
	v := NewScreen(sim)

	v.Render(fixtureSnapshot(t))
	v.DisplayCountdown("01:30")

	assert.Equal(t, "Maze Race - Test  01:30", rowText(sim, headerRow))
	for y, row := range fixtureRows {
		assert.Equal(t, row, rowText(sim, gridTop+y))
	}
	assert.Equal(t, helpText, rowText(sim, gridTop+len(fixtureRows)+2))

	_, _, style, _ := sim.GetContent(1, gridTop+1)
	assert.Equal(t, stylePlayer, style)
}

func TestScreenGameOver(t *testing.T) {
	sim := newSimScreen(t)
	v := NewScreen(sim)
	snap := fixtureSnapshot(t)

	v.Render(snap)
	v.DisplayGameOver("You Won!")
	assert.Equal(t, " You Won!", rowText(sim, gridTop+len(fixtureRows)+1))

	// The next game clears the message.
	v.Render(snap)
	assert.Equal(t, "", rowText(sim, gridTop+len(fixtureRows)+1))
}

func TestKeyCommand(t *testing.T) {
	cases := []struct {
		name string
		ev   *tcell.EventKey
		want Command
	}{
		{"arrow up", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), Command{Kind: CommandMove, Dir: race.Up}},
		{"arrow down", tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), Command{Kind: CommandMove, Dir: race.Down}},
		{"arrow left", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), Command{Kind: CommandMove, Dir: race.Left}},
		{"arrow right", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), Command{Kind: CommandMove, Dir: race.Right}},
		{"w", tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone), Command{Kind: CommandMove, Dir: race.Up}},
		{"A", tcell.NewEventKey(tcell.KeyRune, 'A', tcell.ModNone), Command{Kind: CommandMove, Dir: race.Left}},
		{"s", tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), Command{Kind: CommandMove, Dir: race.Down}},
		{"d", tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone), Command{Kind: CommandMove, Dir: race.Right}},
		{"new game", tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone), Command{Kind: CommandNewGame}},
		{"level 2", tcell.NewEventKey(tcell.KeyRune, '2', tcell.ModNone), Command{Kind: CommandLevel, Level: race.Advanced}},
		{"level 3", tcell.NewEventKey(tcell.KeyRune, '3', tcell.ModNone), Command{Kind: CommandLevel, Level: race.Expert}},
		{"quit", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), Command{Kind: CommandQuit}},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), Command{Kind: CommandQuit}},
		{"other", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), Command{}},
		{"tab", tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), Command{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KeyCommand(tc.ev))
		})
	}
}

func TestNilSoundIsSilent(t *testing.T) {
	var s *Sound
	assert.NotPanics(t, func() {
		s.Step()
		s.GameOver(race.OutcomePlayerWin)
		s.Close()
	})
}

type appHarness struct {
	sim   tcell.SimulationScreen
	games chan *service.Game
	done  chan error
}

func runApp(t *testing.T) *appHarness {
	t.Helper()
	h := &appHarness{
		sim:   newSimScreen(t),
		games: make(chan *service.Game, 8),
		done:  make(chan error, 1),
	}
	factory := func(level race.Level) (*service.Game, error) {
		grid := maze.ParseRows(fixtureRows)
		l := testLevel
		l.Name = level.Name
		g, err := service.NewGame(l, grid, service.WithTickInterval(time.Hour), service.WithOpponentDelay(0))
		if err == nil {
			h.games <- g
		}
		return g, err
	}

	app := NewApp(h.sim, factory, testLevel, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { h.done <- app.Run(ctx) }()
	return h
}

func (h *appHarness) nextGame(t *testing.T) *service.Game {
	t.Helper()
	select {
	case g := <-h.games:
		return g
	case <-time.After(2 * time.Second):
		t.Fatal("no game started")
		return nil
	}
}

func (h *appHarness) quit(t *testing.T) {
	t.Helper()
	h.sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not quit")
	}
}

func TestAppPlaysToWin(t *testing.T) {
	h := runApp(t)
	g := h.nextGame(t)

	keys := []rune{'s', 's', 'd', 's', 's', 'd'}
	for _, k := range keys {
		require.Eventually(t, func() bool {
			return g.Snapshot().Turn == race.TurnPlayer
		}, 2*time.Second, 2*time.Millisecond)
		before := g.Snapshot().Player
		h.sim.InjectKey(tcell.KeyRune, k, tcell.ModNone)
		require.Eventually(t, func() bool {
			return g.Snapshot().Player != before
		}, 2*time.Second, 2*time.Millisecond)
	}

	select {
	case <-g.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("game did not end")
	}
	assert.Equal(t, race.OutcomePlayerWin, g.Snapshot().Outcome)
	require.Eventually(t, func() bool {
		return strings.Contains(screenText(h.sim), "You Won!")
	}, 2*time.Second, 5*time.Millisecond)

	h.quit(t)
}

func TestAppNewGameAndLevel(t *testing.T) {
	h := runApp(t)
	first := h.nextGame(t)

	h.sim.InjectKey(tcell.KeyRune, 'n', tcell.ModNone)
	second := h.nextGame(t)
	<-first.Done()
	assert.False(t, first.Snapshot().Ended())

	h.sim.InjectKey(tcell.KeyRune, '3', tcell.ModNone)
	third := h.nextGame(t)
	<-second.Done()
	require.Eventually(t, func() bool {
		return strings.Contains(rowText(h.sim, headerRow), "Expert")
	}, 2*time.Second, 5*time.Millisecond)

	h.quit(t)
	<-third.Done()
}
