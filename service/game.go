package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service/i"
	"github.com/beka-birhanu/maze-race/store"
	"github.com/google/uuid"
)

// Game-related errors.
var (
	ErrGameEnded = errors.New("game has ended")
	ErrNoSession = errors.New("no game session")
)

// Game timing defaults.
const (
	DefaultTickInterval  = time.Second
	DefaultOpponentDelay = 500 * time.Millisecond

	storeTimeout = 5 * time.Second
)

type moveRequest struct {
	dir   race.Direction
	reply chan race.MoveResult
}

// Game runs one race. A single loop goroutine serializes player moves,
// countdown ticks and the delayed opponent move; readers take snapshots
// under the read lock.
type Game struct {
	race          *race.Race
	sessionID     uuid.UUID
	store         i.ResultStore
	logger        logger.Logger
	tickInterval  time.Duration
	opponentDelay time.Duration

	started    atomic.Bool
	stopOnce   sync.Once
	stop       chan struct{} // closed to ask the loop to exit
	done       chan struct{} // closed when the loop has exited
	actionChan chan moveRequest
	stateChan  chan race.Snapshot // latest snapshot, older ones are dropped
	endChan    chan race.Snapshot // final snapshot, then closed
	sync.RWMutex
}

// Option configures a Game.
type Option func(*Game)

// WithSessionID tags the game and its result record.
func WithSessionID(id uuid.UUID) Option {
	return func(g *Game) { g.sessionID = id }
}

// WithStore sets where the result is recorded when the race ends.
func WithStore(s i.ResultStore) Option {
	return func(g *Game) { g.store = s }
}

// WithLogger sets the game logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Game) { g.logger = l }
}

// WithTickInterval sets the length of one countdown second.
func WithTickInterval(d time.Duration) Option {
	return func(g *Game) {
		if d > 0 {
			g.tickInterval = d
		}
	}
}

// WithOpponentDelay sets the pause between a player move and the reply.
func WithOpponentDelay(d time.Duration) Option {
	return func(g *Game) {
		if d >= 0 {
			g.opponentDelay = d
		}
	}
}

// NewGame creates a game for level on grid. It does not start the clock.
func NewGame(level race.Level, grid *maze.Grid, opts ...Option) (*Game, error) {
	r, err := race.New(level, grid)
	if err != nil {
		return nil, fmt.Errorf("creating race: %w", err)
	}

	g := &Game{
		race:          r,
		sessionID:     uuid.New(),
		logger:        logger.Nop(),
		tickInterval:  DefaultTickInterval,
		opponentDelay: DefaultOpponentDelay,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		actionChan:    make(chan moveRequest),
		stateChan:     make(chan race.Snapshot, 1),
		endChan:       make(chan race.Snapshot, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SessionID returns the session the game belongs to.
func (g *Game) SessionID() uuid.UUID {
	return g.sessionID
}

// Start runs the game loop until the race ends or Stop is called. Calling
// it more than once has no effect.
func (g *Game) Start() {
	if !g.started.CompareAndSwap(false, true) {
		return
	}
	defer close(g.done)

	ticker := time.NewTicker(g.tickInterval)
	defer ticker.Stop()

	// Armed only while the opponent holds the turn.
	var opponent *time.Timer
	var opponentC <-chan time.Time
	defer func() {
		if opponent != nil {
			opponent.Stop()
		}
	}()

	g.publish(g.Snapshot())
	for {
		select {
		case <-g.stop:
			g.finish()
			return
		case req := <-g.actionChan:
			res := g.attemptMove(req.dir)
			req.reply <- res
			if res.OpponentDue {
				opponent = time.NewTimer(g.opponentDelay)
				opponentC = opponent.C
			}
		case <-ticker.C:
			g.apply(g.race.Tick)
		case <-opponentC:
			opponentC = nil
			g.apply(g.race.OpponentMove)
		}

		if g.ended() {
			g.finish()
			return
		}
	}
}

// Stop ends the game, halting the countdown and any pending opponent move,
// and waits for the loop to exit. It is safe to call more than once.
func (g *Game) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
	if g.started.Load() {
		<-g.done
	}
}

// Done is closed once the loop has exited.
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// Move hands a player move to the loop and waits for its result.
func (g *Game) Move(ctx context.Context, dir race.Direction) (race.MoveResult, error) {
	req := moveRequest{dir: dir, reply: make(chan race.MoveResult, 1)}
	select {
	case g.actionChan <- req:
	case <-g.done:
		return race.MoveResult{}, ErrGameEnded
	case <-g.stop:
		return race.MoveResult{}, ErrGameEnded
	case <-ctx.Done():
		return race.MoveResult{}, ctx.Err()
	}
	return <-req.reply, nil
}

// Snapshot returns the current state.
func (g *Game) Snapshot() race.Snapshot {
	g.RLock()
	defer g.RUnlock()
	return g.race.Snapshot()
}

// Result returns the final result once the race has ended.
func (g *Game) Result() (race.Result, bool) {
	g.RLock()
	defer g.RUnlock()
	return g.race.Result()
}

// StateChan returns the state change channel.
func (g *Game) StateChan() <-chan race.Snapshot {
	return g.stateChan
}

// EndChan returns the end channel for the game.
func (g *Game) EndChan() <-chan race.Snapshot {
	return g.endChan
}

func (g *Game) attemptMove(dir race.Direction) race.MoveResult {
	g.Lock()
	res := g.race.AttemptMove(dir)
	g.Unlock()

	if res.Accepted {
		g.publish(g.Snapshot())
	}
	return res
}

// apply runs a race transition under the write lock and publishes the new
// state when it changed anything.
func (g *Game) apply(f func() bool) {
	g.Lock()
	changed := f()
	g.Unlock()

	if changed {
		g.publish(g.Snapshot())
	}
}

func (g *Game) ended() bool {
	g.RLock()
	defer g.RUnlock()
	return g.race.Ended()
}

// publish keeps only the newest snapshot in stateChan so a slow reader
// never stalls the loop. Only the loop goroutine sends.
func (g *Game) publish(s race.Snapshot) {
	for {
		select {
		case g.stateChan <- s:
			return
		default:
		}
		select {
		case <-g.stateChan:
		default:
		}
	}
}

// finish records the result, sends the final snapshot and closes the
// output channels.
func (g *Game) finish() {
	final := g.Snapshot()
	if res, ok := g.Result(); ok {
		g.logger.Info(fmt.Sprintf("game %s ended: %s after %ds on %s", g.sessionID, res.Outcome, res.Elapsed, res.Level.Name))
		g.record(res)
	} else {
		g.logger.Info(fmt.Sprintf("game %s stopped before the end", g.sessionID))
	}

	g.endChan <- final
	close(g.endChan)
	close(g.stateChan)
}

// record persists the result. Failures are logged and otherwise ignored:
// the outcome stands whether or not it could be stored.
func (g *Game) record(res race.Result) {
	if g.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := g.store.Append(ctx, store.NewRecord(g.sessionID, res)); err != nil {
		g.logger.Warning(fmt.Sprintf("storing result of game %s: %s", g.sessionID, err))
	}
}
