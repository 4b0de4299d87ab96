package api

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T, tick time.Duration) (SessionClient, *service.GameSessionManager) {
	t.Helper()
	gsm, err := service.NewGameSessionManager(&service.Config{
		MazeFactory:   maze.NewGenerator(11).Generate,
		TickInterval:  tick,
		OpponentDelay: time.Millisecond,
	})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	require.NoError(t, RegisterGameSessionManager(srv, gsm, nil))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		gsm.StopAll()
	})
	return NewSessionClient(conn), gsm
}

func request(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func startGame(t *testing.T, c SessionClient, level string) string {
	t.Helper()
	resp, err := c.NewGame(context.Background(), request(t, map[string]interface{}{"level": level}))
	require.NoError(t, err)
	client := resp.GetFields()["clientId"].GetStringValue()
	_, err = uuid.Parse(client)
	require.NoError(t, err)
	_, err = uuid.Parse(resp.GetFields()["sessionId"].GetStringValue())
	require.NoError(t, err)
	return client
}

func TestNewGameAndState(t *testing.T) {
	c, _ := newTestClient(t, time.Hour)
	client := startGame(t, c, "advanced")

	resp, err := c.State(context.Background(), request(t, map[string]interface{}{"clientId": client}))
	require.NoError(t, err)

	snap := SnapshotFromStruct(resp)
	assert.Equal(t, race.Advanced, snap.Level)
	assert.Equal(t, 25, snap.Size)
	assert.Len(t, snap.Rows, 25)
	assert.Equal(t, maze.Position{X: 1, Y: 1}, snap.Player)
	assert.Equal(t, maze.Position{X: 23, Y: 1}, snap.Opponent)
	assert.Equal(t, maze.Position{X: 12, Y: 23}, snap.Exit)
	assert.Equal(t, race.TurnPlayer, snap.Turn)
	assert.Equal(t, 420, snap.Remaining)
	assert.Equal(t, "07:00", resp.GetFields()["countdown"].GetStringValue())
}

func TestNewGameKeepsGivenClient(t *testing.T) {
	c, gsm := newTestClient(t, time.Hour)
	client := uuid.New()

	resp, err := c.NewGame(context.Background(), request(t, map[string]interface{}{"clientId": client.String()}))
	require.NoError(t, err)
	assert.Equal(t, client.String(), resp.GetFields()["clientId"].GetStringValue())

	sessionID, ok := gsm.SessionOf(client)
	require.True(t, ok)
	assert.Equal(t, sessionID.String(), resp.GetFields()["sessionId"].GetStringValue())
}

func TestMove(t *testing.T) {
	c, _ := newTestClient(t, time.Hour)
	client := startGame(t, c, "beginner")

	state, err := c.State(context.Background(), request(t, map[string]interface{}{"clientId": client}))
	require.NoError(t, err)
	snap := SnapshotFromStruct(state)
	grid := maze.ParseRows(snap.Rows)
	dir := "right"
	if grid.IsWall(maze.Position{X: 2, Y: 1}) {
		dir = "down"
	}

	resp, err := c.Move(context.Background(), request(t, map[string]interface{}{"clientId": client, "direction": dir}))
	require.NoError(t, err)
	f := resp.GetFields()
	assert.True(t, f["accepted"].GetBoolValue())
	assert.True(t, f["opponentDue"].GetBoolValue())
	assert.False(t, f["ended"].GetBoolValue())
	assert.NotEqual(t, snap.Player, SnapshotFromStruct(f["state"].GetStructValue()).Player)
}

func TestErrorCodes(t *testing.T) {
	c, _ := newTestClient(t, time.Hour)
	client := startGame(t, c, "beginner")
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"bad client id", func() error {
			_, err := c.State(ctx, request(t, map[string]interface{}{"clientId": "nope"}))
			return err
		}, codes.InvalidArgument},
		{"bad direction", func() error {
			_, err := c.Move(ctx, request(t, map[string]interface{}{"clientId": client, "direction": "sideways"}))
			return err
		}, codes.InvalidArgument},
		{"unknown client", func() error {
			_, err := c.State(ctx, request(t, map[string]interface{}{"clientId": uuid.NewString()}))
			return err
		}, codes.NotFound},
		{"bad new game client", func() error {
			_, err := c.NewGame(ctx, request(t, map[string]interface{}{"clientId": "x"}))
			return err
		}, codes.InvalidArgument},
		{"watch unknown client", func() error {
			stream, err := c.Watch(ctx, request(t, map[string]interface{}{"clientId": uuid.NewString()}))
			if err != nil {
				return err
			}
			_, err = stream.Recv()
			return err
		}, codes.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.Equal(t, tc.want, status.Code(err))
		})
	}
}

func TestWatchStreamsUntilGameOver(t *testing.T) {
	c, _ := newTestClient(t, 2*time.Millisecond)
	client := startGame(t, c, "beginner")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stream, err := c.Watch(ctx, request(t, map[string]interface{}{"clientId": client}))
	require.NoError(t, err)

	var last *structpb.Struct
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		last = msg
	}

	require.NotNil(t, last)
	snap := SnapshotFromStruct(last)
	assert.Equal(t, race.OutcomeTimeout, snap.Outcome)
	assert.Equal(t, 0, snap.Remaining)
	assert.Equal(t, "Time's Up! Both Lost!", last.GetFields()["message"].GetStringValue())
}

func TestWatchEndsWhenGameIsReplaced(t *testing.T) {
	c, _ := newTestClient(t, time.Hour)
	client := startGame(t, c, "beginner")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stream, err := c.Watch(ctx, request(t, map[string]interface{}{"clientId": client}))
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "beginner", first.GetFields()["level"].GetStringValue())

	_, err = c.NewGame(ctx, request(t, map[string]interface{}{"clientId": client, "level": "expert"}))
	require.NoError(t, err)

	for {
		_, err := stream.Recv()
		if err != nil {
			assert.Equal(t, io.EOF, err)
			break
		}
	}
}
