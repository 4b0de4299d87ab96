package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/beka-birhanu/maze-race/api"
	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/beka-birhanu/maze-race/service/i"
	"github.com/beka-birhanu/maze-race/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSize       = 256
	maxBodyBytes = 1 << 12
)

// Server exposes game sessions over HTTP and WebSocket.
type Server struct {
	router    *way.Router
	gsm       i.GameSessionManager
	results   i.ResultStore
	publicURL string
	logger    logger.Logger
	upgrader  websocket.Upgrader
}

// Config holds the dependencies of a Server.
type Config struct {
	Manager   i.GameSessionManager
	Results   i.ResultStore
	PublicURL string
	Logger    logger.Logger
}

// NewServer creates a Server with its routes registered.
func NewServer(c *Config) (*Server, error) {
	if c.Manager == nil {
		return nil, errors.New("game session manager is required")
	}
	s := &Server{
		gsm:       c.Manager,
		results:   c.Results,
		publicURL: strings.TrimRight(c.PublicURL, "/"),
		logger:    c.Logger,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", "/levels", s.handleLevels)
	s.router.HandleFunc("GET", "/results", s.handleResults)
	s.router.HandleFunc("POST", "/games", s.handleNewGame)
	s.router.HandleFunc("POST", "/games/:client/moves", s.handleMove)
	s.router.HandleFunc("GET", "/games/:client/state", s.handleState)
	s.router.HandleFunc("GET", "/games/:client/ws", s.handleWebSocket)
	s.router.HandleFunc("GET", "/games/:client/qr", s.handleQR)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type levelView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int    `json:"size"`
	TimeBudget int    `json:"timeBudget"`
	Default    bool   `json:"default,omitempty"`
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	levels := race.Levels()
	out := make([]levelView, len(levels))
	for idx, l := range levels {
		out[idx] = levelView{ID: l.ID, Name: l.Name, Size: l.Size, TimeBudget: l.TimeBudget, Default: l == race.DefaultLevel}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleResults lists finished games, newest first. ?limit=N keeps the
// first N.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeJSON(w, http.StatusOK, []store.Record{})
		return
	}
	recs, err := s.results.List(r.Context())
	if err != nil {
		s.logger.Error(fmt.Sprintf("Listing results: %s", err))
		s.writeError(w, http.StatusInternalServerError, "results unavailable")
		return
	}

	for lo, hi := 0, len(recs)-1; lo < hi; lo, hi = lo+1, hi-1 {
		recs[lo], recs[hi] = recs[hi], recs[lo]
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(recs) {
			recs = recs[:limit]
		}
	}
	if recs == nil {
		recs = []store.Record{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

type newGameRequest struct {
	ClientID string `json:"clientId"`
	Level    string `json:"level"`
}

// handleNewGame starts a game. The level and client may come from the JSON
// body or the query string; a missing client id gets a fresh one.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	if req.ClientID == "" {
		req.ClientID = q.Get("client")
	}
	if req.Level == "" {
		req.Level = q.Get("level")
	}

	client := uuid.New()
	if req.ClientID != "" {
		id, err := uuid.Parse(req.ClientID)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid client id")
			return
		}
		client = id
	}

	sessionID, err := s.gsm.NewSession(client, req.Level)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Starting game for client %s: %s", client, err))
		s.writeError(w, http.StatusInternalServerError, "could not start game")
		return
	}
	resp := map[string]interface{}{
		"clientId":  client.String(),
		"sessionId": sessionID.String(),
	}
	if snap, err := s.gsm.Snapshot(client); err == nil {
		resp["state"] = api.SnapshotMap(snap)
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

type moveRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	client, ok := s.clientParam(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dir, err := race.ParseDirection(req.Direction)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.gsm.Move(r.Context(), client, dir)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := map[string]interface{}{
		"accepted":    res.Accepted,
		"opponentDue": res.OpponentDue,
		"ended":       res.Ended,
	}
	if snap, err := s.gsm.Snapshot(client); err == nil {
		resp["state"] = api.SnapshotMap(snap)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	client, ok := s.clientParam(w, r)
	if !ok {
		return
	}
	snap, err := s.gsm.Snapshot(client)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SnapshotMap(snap))
}

// handleQR serves a PNG QR code linking to the client's game.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	client, ok := s.clientParam(w, r)
	if !ok {
		return
	}
	png, err := qrcode.Encode(s.JoinURL(client), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Encoding QR code for client %s: %s", client, err))
		s.writeError(w, http.StatusInternalServerError, "could not encode QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// JoinURL is the link a second device follows to watch or play the
// client's game.
func (s *Server) JoinURL(client uuid.UUID) string {
	return fmt.Sprintf("%s/games/%s/state", s.publicURL, client)
}

func (s *Server) clientParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	client, err := uuid.Parse(way.Param(r.Context(), "client"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid client id")
		return uuid.Nil, false
	}
	return client, true
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoSession):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrGameEnded):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error(fmt.Sprintf("Serving request: %s", err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug(fmt.Sprintf("Writing response: %s", err))
	}
}
