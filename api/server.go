package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/beka-birhanu/maze-race/service/i"
	"github.com/google/uuid"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	gameSessionManager i.GameSessionManager
	logger             logger.Logger

	UnimplementedSessionServer
}

// RegisterGameSessionManager exposes gsm as the Session service on gsr.
func RegisterGameSessionManager(gsr grpc.ServiceRegistrar, gsm i.GameSessionManager, l logger.Logger) error {
	if gsm == nil {
		return errors.New("game session manager is required")
	}
	if l == nil {
		l = logger.Nop()
	}
	server := &Server{
		gameSessionManager: gsm,
		logger:             l,
	}

	RegisterSessionServer(gsr, server)
	return nil
}

// NewGame starts a game. A missing clientId gets a fresh one, which is
// returned with the session id.
func (s *Server) NewGame(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	client := uuid.New()
	if raw := stringField(r, fieldClientID); raw != "" {
		id, err := clientID(r)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		client = id
	}

	sessionID, err := s.gameSessionManager.NewSession(client, stringField(r, fieldLevel))
	if err != nil {
		s.logger.Error(fmt.Sprintf("Starting game for client %s: %s", client, err))
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		fieldClientID:  client.String(),
		fieldSessionID: sessionID.String(),
	})
}

// Move applies one player move and returns the state after it.
func (s *Server) Move(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	client, err := clientID(r)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	dir, err := race.ParseDirection(stringField(r, fieldDirection))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.gameSessionManager.Move(ctx, client, dir)
	if err != nil {
		return nil, toStatus(err)
	}
	snap, err := s.gameSessionManager.Snapshot(client)
	if err != nil && !errors.Is(err, service.ErrNoSession) {
		return nil, toStatus(err)
	}

	out := map[string]interface{}{
		fieldAccepted:    res.Accepted,
		fieldOpponentDue: res.OpponentDue,
		fieldEnded:       res.Ended,
	}
	// A winning move can retire the session before the snapshot is read.
	if err == nil {
		out[fieldState] = SnapshotMap(snap)
	}
	return structpb.NewStruct(out)
}

// State returns the client's current game state.
func (s *Server) State(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	client, err := clientID(r)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	snap, err := s.gameSessionManager.Snapshot(client)
	if err != nil {
		return nil, toStatus(err)
	}
	return SnapshotStruct(snap)
}

// Watch streams the client's game state until the game is over or the
// caller goes away.
func (s *Server) Watch(r *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	client, err := clientID(r)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	sessionID, ok := s.gameSessionManager.SessionOf(client)
	if !ok {
		return toStatus(service.ErrNoSession)
	}

	w := newWatcher()
	cancel, err := s.gameSessionManager.Subscribe(sessionID, w)
	if err != nil {
		return toStatus(err)
	}
	defer cancel()

	send := func(snap race.Snapshot) error {
		msg, err := SnapshotStruct(snap)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		return stream.Send(msg)
	}

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case snap := <-w.snaps:
			if err := send(snap); err != nil || snap.Ended() {
				return err
			}
		case <-w.done:
			select {
			case snap := <-w.snaps:
				return send(snap)
			default:
				return nil
			}
		}
	}
}

// watcher hands the newest snapshot to a stream without ever blocking the
// session that feeds it.
type watcher struct {
	snaps chan race.Snapshot
	done  chan struct{}
	once  sync.Once
	mu    sync.Mutex
}

func newWatcher() *watcher {
	return &watcher{snaps: make(chan race.Snapshot, 1), done: make(chan struct{})}
}

func (w *watcher) Render(s race.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.snaps:
	default:
	}
	w.snaps <- s
}

func (w *watcher) DisplayCountdown(string) {}

func (w *watcher) DisplayGameOver(string) {}

func (w *watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrNoSession):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrGameEnded):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
