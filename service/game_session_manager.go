package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service/i"
	"github.com/google/uuid"
)

// ErrNoMazeFactory is returned when the manager has nothing to build mazes with.
var ErrNoMazeFactory = errors.New("maze factory is required")

type session struct {
	game        *Game
	client      uuid.UUID
	subscribers map[int]i.Presenter
	nextSub     int
	mu          sync.RWMutex

	// out orders deliveries: fan-out and a subscriber's first frame never
	// interleave. last and message are the newest frames fanned out.
	out      sync.Mutex
	last     race.Snapshot
	message  string
	finished bool
}

func newSession(game *Game, client uuid.UUID) *session {
	return &session{
		game:        game,
		client:      client,
		subscribers: make(map[int]i.Presenter),
		last:        game.Snapshot(),
	}
}

// Render, DisplayCountdown and DisplayGameOver fan out to every subscriber.
func (s *session) Render(snap race.Snapshot) {
	s.out.Lock()
	defer s.out.Unlock()
	s.last = snap
	for _, p := range s.presenters() {
		p.Render(snap)
	}
}

func (s *session) DisplayCountdown(mmss string) {
	s.out.Lock()
	defer s.out.Unlock()
	for _, p := range s.presenters() {
		p.DisplayCountdown(mmss)
	}
}

func (s *session) DisplayGameOver(message string) {
	s.out.Lock()
	defer s.out.Unlock()
	s.message = message
	for _, p := range s.presenters() {
		p.DisplayGameOver(message)
	}
}

// subscribe registers p and shows it the newest frames fanned out so far,
// so p never sees an older state after a newer one. finished reports that
// the game was already over and p will get nothing more.
func (s *session) subscribe(p i.Presenter) (key int, finished bool) {
	s.out.Lock()
	defer s.out.Unlock()

	s.mu.Lock()
	key = s.nextSub
	s.nextSub++
	s.subscribers[key] = p
	s.mu.Unlock()

	show(p, s.last)
	if s.message != "" {
		p.DisplayGameOver(s.message)
	}
	return key, s.finished
}

// finish marks the session over and returns its current subscribers.
func (s *session) finish() []i.Presenter {
	s.out.Lock()
	defer s.out.Unlock()
	s.finished = true
	return s.presenters()
}

func (s *session) presenters() []i.Presenter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]i.Presenter, 0, len(s.subscribers))
	for _, p := range s.subscribers {
		out = append(out, p)
	}
	return out
}

// GameSessionManager owns running games. Each client has at most one live
// session; starting another one stops the previous game.
type GameSessionManager struct {
	sessions        map[uuid.UUID]*session
	clientToSession map[uuid.UUID]uuid.UUID
	mazeFactory     func(size int) (*maze.Grid, error)
	store           i.ResultStore
	logger          logger.Logger
	tickInterval    time.Duration
	opponentDelay   time.Duration
	wg              sync.WaitGroup
	sync.RWMutex
}

// Config holds the dependencies of a GameSessionManager. Zero durations
// select DefaultTickInterval and DefaultOpponentDelay.
type Config struct {
	MazeFactory   func(size int) (*maze.Grid, error)
	Store         i.ResultStore
	Logger        logger.Logger
	TickInterval  time.Duration
	OpponentDelay time.Duration
}

// NewGameSessionManager creates a manager from c.
func NewGameSessionManager(c *Config) (*GameSessionManager, error) {
	if c.MazeFactory == nil {
		return nil, ErrNoMazeFactory
	}
	gsm := &GameSessionManager{
		sessions:        make(map[uuid.UUID]*session),
		clientToSession: make(map[uuid.UUID]uuid.UUID),
		mazeFactory:     c.MazeFactory,
		store:           c.Store,
		logger:          c.Logger,
		tickInterval:    c.TickInterval,
		opponentDelay:   c.OpponentDelay,
	}
	if gsm.logger == nil {
		gsm.logger = logger.Nop()
	}
	if gsm.tickInterval <= 0 {
		gsm.tickInterval = DefaultTickInterval
	}
	if gsm.opponentDelay <= 0 {
		gsm.opponentDelay = DefaultOpponentDelay
	}
	return gsm, nil
}

// NewSession starts a game for clientID. Unknown level ids fall back to the
// default level. Any game the client is still playing is stopped first.
func (g *GameSessionManager) NewSession(clientID uuid.UUID, levelID string) (uuid.UUID, error) {
	level, ok := race.LevelByID(levelID)
	if !ok && levelID != "" {
		g.logger.Warning(fmt.Sprintf("unknown level %q, using %s", levelID, level.ID))
	}

	grid, err := g.mazeFactory(level.Size)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating maze for a new game: %w", err)
	}

	sessionID := g.newSessionID()
	opts := []Option{
		WithSessionID(sessionID),
		WithLogger(g.logger),
		WithTickInterval(g.tickInterval),
		WithOpponentDelay(g.opponentDelay),
	}
	if g.store != nil {
		opts = append(opts, WithStore(g.store))
	}
	game, err := NewGame(level, grid, opts...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating new game: %w", err)
	}

	s := newSession(game, clientID)
	previous := g.saveSession(sessionID, s)
	if previous != nil {
		previous.game.Stop()
		g.logger.Info(fmt.Sprintf("stopped previous game %s of client %s", previous.game.SessionID(), clientID))
	}

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		game.Start()
	}()
	go func() {
		defer g.wg.Done()
		g.listenGameChan(sessionID, s)
	}()

	g.logger.Info(fmt.Sprintf("started new %s game %s for client %s", level.Name, sessionID, clientID))
	return sessionID, nil
}

// Move forwards a player move to the client's game.
func (g *GameSessionManager) Move(ctx context.Context, clientID uuid.UUID, dir race.Direction) (race.MoveResult, error) {
	s, err := g.clientSession(clientID)
	if err != nil {
		return race.MoveResult{}, err
	}
	return s.game.Move(ctx, dir)
}

// Snapshot returns the state of the client's game.
func (g *GameSessionManager) Snapshot(clientID uuid.UUID) (race.Snapshot, error) {
	s, err := g.clientSession(clientID)
	if err != nil {
		return race.Snapshot{}, err
	}
	return s.game.Snapshot(), nil
}

// SessionOf returns the client's live session.
func (g *GameSessionManager) SessionOf(clientID uuid.UUID) (uuid.UUID, bool) {
	g.RLock()
	defer g.RUnlock()
	id, ok := g.clientToSession[clientID]
	return id, ok
}

// Subscribe attaches p to a session. p immediately receives the newest
// state and then every change until cancel is called or the game is over.
// A p that implements io.Closer is closed once the game is over, whether it
// was decided or stopped.
func (g *GameSessionManager) Subscribe(sessionID uuid.UUID, p i.Presenter) (func(), error) {
	g.RLock()
	s, ok := g.sessions[sessionID]
	g.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}

	key, finished := s.subscribe(p)
	if finished {
		closeSubscriber(p, g.logger, sessionID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, key)
			s.mu.Unlock()
		})
	}, nil
}

// StopAll stops every running game and waits for their loops and
// listeners to finish.
func (g *GameSessionManager) StopAll() {
	g.RLock()
	games := make([]*Game, 0, len(g.sessions))
	for _, s := range g.sessions {
		games = append(games, s.game)
	}
	g.RUnlock()

	for _, game := range games {
		game.Stop()
	}
	g.wg.Wait()
}

func (g *GameSessionManager) clientSession(clientID uuid.UUID) (*session, error) {
	g.RLock()
	defer g.RUnlock()
	sessionID, ok := g.clientToSession[clientID]
	if !ok {
		return nil, ErrNoSession
	}
	return g.sessions[sessionID], nil
}

func (g *GameSessionManager) newSessionID() uuid.UUID {
	g.RLock()
	defer g.RUnlock()
	sessionID := uuid.New()
	for {
		if _, ok := g.sessions[sessionID]; !ok {
			return sessionID
		}
		sessionID = uuid.New()
	}
}

// saveSession registers s and detaches the client's previous session, which
// it returns for the caller to stop outside the lock.
func (g *GameSessionManager) saveSession(sessionID uuid.UUID, s *session) *session {
	g.Lock()
	defer g.Unlock()

	var previous *session
	if oldID, ok := g.clientToSession[s.client]; ok {
		previous = g.sessions[oldID]
		delete(g.sessions, oldID)
	}

	g.sessions[sessionID] = s
	g.clientToSession[s.client] = sessionID
	return previous
}

func (g *GameSessionManager) listenGameChan(id uuid.UUID, s *session) {
	final := Pump(s.game, s)
	if final.Ended() {
		g.logger.Info(fmt.Sprintf("game %s finished: %s", id, final.Outcome.Message()))
	}
	g.clean(id, s)

	for _, p := range s.finish() {
		closeSubscriber(p, g.logger, id)
	}
}

func closeSubscriber(p i.Presenter, l logger.Logger, id uuid.UUID) {
	if c, ok := p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			l.Debug(fmt.Sprintf("closing subscriber of game %s: %s", id, err))
		}
	}
}

// clean forgets a finished session unless it was already replaced.
func (g *GameSessionManager) clean(id uuid.UUID, s *session) {
	g.Lock()
	defer g.Unlock()
	if current, ok := g.sessions[id]; ok && current == s {
		delete(g.sessions, id)
	}
	if current, ok := g.clientToSession[s.client]; ok && current == id {
		delete(g.clientToSession, s.client)
	}
}
