package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/beka-birhanu/maze-race/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv     *httptest.Server
	web     *Server
	gsm     *service.GameSessionManager
	results *store.Memory
}

func newTestEnv(t *testing.T, tick time.Duration) *testEnv {
	t.Helper()
	results := store.NewMemory()
	gsm, err := service.NewGameSessionManager(&service.Config{
		MazeFactory:   maze.NewGenerator(5).Generate,
		Store:         results,
		TickInterval:  tick,
		OpponentDelay: time.Millisecond,
	})
	require.NoError(t, err)

	s, err := NewServer(&Config{Manager: gsm, Results: results, PublicURL: "http://maze.test/"})
	require.NoError(t, err)

	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		srv.Close()
		gsm.StopAll()
	})
	return &testEnv{srv: srv, web: s, gsm: gsm, results: results}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func (e *testEnv) newGame(t *testing.T, level string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/games", `{"level":"`+level+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	client, _ := body["clientId"].(string)
	require.NotEmpty(t, client)
	return client
}

func openDirection(t *testing.T, state map[string]interface{}) string {
	t.Helper()
	rows, ok := state["rows"].([]interface{})
	require.True(t, ok)
	if rows[1].(string)[2] != '#' {
		return "right"
	}
	return "down"
}

func TestLevels(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	resp, err := http.Get(e.srv.URL + "/levels")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var levels []levelView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&levels))
	assert.Equal(t, []levelView{
		{ID: "beginner", Name: "Beginner", Size: 15, TimeBudget: 180, Default: true},
		{ID: "advanced", Name: "Advanced", Size: 25, TimeBudget: 420},
		{ID: "expert", Name: "Expert", Size: 37, TimeBudget: 600},
	}, levels)
}

func TestNewGameAndState(t *testing.T) {
	e := newTestEnv(t, time.Hour)

	resp, body := e.do(t, http.MethodPost, "/games?level=expert", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	client := body["clientId"].(string)
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "expert", state["level"])
	assert.Equal(t, "10:00", state["countdown"])

	resp, state = e.do(t, http.MethodGet, "/games/"+client+"/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(37), state["size"])
	assert.Equal(t, "player", state["turn"])
	assert.Equal(t, false, state["ended"])
}

func TestNewGameForKnownClientReplacesGame(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	client := uuid.NewString()

	resp, first := e.do(t, http.MethodPost, "/games", `{"clientId":"`+client+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, second := e.do(t, http.MethodPost, "/games?client="+client+"&level=advanced", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, client, second["clientId"])
	assert.NotEqual(t, first["sessionId"], second["sessionId"])
	assert.Equal(t, "advanced", second["state"].(map[string]interface{})["level"])
}

func TestMoveEndpoint(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	client := e.newGame(t, "beginner")
	_, state := e.do(t, http.MethodGet, "/games/"+client+"/state", "")

	resp, body := e.do(t, http.MethodPost, "/games/"+client+"/moves", `{"direction":"`+openDirection(t, state)+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, true, body["opponentDue"])
	assert.NotNil(t, body["state"])
}

func TestErrorResponses(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	client := e.newGame(t, "beginner")

	cases := []struct {
		name, method, path, body string
		want                     int
	}{
		{"bad client", http.MethodGet, "/games/nope/state", "", http.StatusBadRequest},
		{"unknown client", http.MethodGet, "/games/" + uuid.NewString() + "/state", "", http.StatusNotFound},
		{"unknown direction", http.MethodPost, "/games/" + client + "/moves", `{"direction":"diagonal"}`, http.StatusBadRequest},
		{"broken body", http.MethodPost, "/games/" + client + "/moves", `{"direction":`, http.StatusBadRequest},
		{"move without session", http.MethodPost, "/games/" + uuid.NewString() + "/moves", `{"direction":"up"}`, http.StatusNotFound},
		{"bad new game client", http.MethodPost, "/games", `{"clientId":"x"}`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/results?limit=-1", "", http.StatusBadRequest},
		{"ws without session", http.MethodGet, "/games/" + uuid.NewString() + "/ws", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := e.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestResultsNewestFirst(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for n, outcome := range []race.Outcome{race.OutcomePlayerWin, race.OutcomeOpponentWin, race.OutcomeTimeout} {
		rec := store.NewRecord(uuid.New(), race.Result{Level: race.Beginner, Outcome: outcome, Elapsed: n, EndedAt: at})
		require.NoError(t, e.results.Append(ctx, rec))
	}

	resp, err := http.Get(e.srv.URL + "/results?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recs []store.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "timeout", recs[0].Result)
	assert.Equal(t, "cpu", recs[1].Result)
}

func TestEmptyResults(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	resp, err := http.Get(e.srv.URL + "/results")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", buf.String())
}

func TestQRCode(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	client := uuid.New()
	resp, err := http.Get(e.srv.URL + "/games/" + client.String() + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())

	assert.Equal(t, "http://maze.test/games/"+client.String()+"/state", e.web.JoinURL(client))
}

func dialWS(t *testing.T, e *testEnv, client string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/games/" + client + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func TestWebSocketPlay(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	client := e.newGame(t, "beginner")
	conn := dialWS(t, e, client)

	var first wsMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, MessageState, first.Type)

	require.NoError(t, conn.WriteJSON(moveRequest{Direction: openDirection(t, first.State)}))

	for {
		var m wsMessage
		require.NoError(t, conn.ReadJSON(&m))
		if m.Type == MessageMove {
			require.NotNil(t, m.Accepted)
			assert.True(t, *m.Accepted)
			return
		}
	}
}

func TestWebSocketReceivesGameOver(t *testing.T) {
	e := newTestEnv(t, 3*time.Millisecond)
	client := e.newGame(t, "beginner")
	conn := dialWS(t, e, client)

	var last wsMessage
	for {
		var m wsMessage
		if err := conn.ReadJSON(&m); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
		last = m
	}
	assert.Equal(t, MessageGameOver, last.Type)
	assert.Equal(t, "Time's Up! Both Lost!", last.Message)
}
