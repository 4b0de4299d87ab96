package web

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/beka-birhanu/maze-race/api"
	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = time.Second
	moveTimeout  = 5 * time.Second
	maxQueued    = 32
	maxFrameSize = 512
)

// Message types pushed to the browser.
const (
	MessageState     = "state"
	MessageCountdown = "countdown"
	MessageGameOver  = "gameover"
	MessageMove      = "move"
)

// wsMessage is one frame sent by the server.
type wsMessage struct {
	Type      string                 `json:"type"`
	State     map[string]interface{} `json:"state,omitempty"`
	Countdown string                 `json:"countdown,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Accepted  *bool                  `json:"accepted,omitempty"`
}

// handleWebSocket attaches a browser to the client's game. State, countdown
// and game-over frames are pushed; {"direction": "..."} frames are moves.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	client, ok := s.clientParam(w, r)
	if !ok {
		return
	}
	sessionID, ok := s.gsm.SessionOf(client)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no game session")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warning(fmt.Sprintf("Upgrading connection of client %s: %s", client, err))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	p := newSocketPresenter(conn, s.logger)
	go p.writeLoop()

	cancel, err := s.gsm.Subscribe(sessionID, p)
	if err != nil {
		_ = p.Close()
		return
	}
	defer cancel()
	s.logger.Info(fmt.Sprintf("Client %s watching game %s", client, sessionID))

	for {
		var req moveRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(fmt.Sprintf("Reading from client %s: %s", client, err))
			}
			_ = p.Close()
			return
		}
		dir, err := race.ParseDirection(req.Direction)
		if err != nil {
			p.enqueue(wsMessage{Type: MessageMove, Message: err.Error()})
			continue
		}

		ctx, stop := context.WithTimeout(r.Context(), moveTimeout)
		res, err := s.gsm.Move(ctx, client, dir)
		stop()
		if err != nil {
			p.enqueue(wsMessage{Type: MessageMove, Message: err.Error()})
			continue
		}
		accepted := res.Accepted
		p.enqueue(wsMessage{Type: MessageMove, Accepted: &accepted})
	}
}

// socketPresenter queues frames for one WebSocket. Render never blocks the
// session; when the queue is full the oldest frame is dropped.
type socketPresenter struct {
	conn   *websocket.Conn
	logger logger.Logger

	mu     sync.Mutex
	queue  []wsMessage
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newSocketPresenter(conn *websocket.Conn, l logger.Logger) *socketPresenter {
	return &socketPresenter{
		conn:   conn,
		logger: l,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (p *socketPresenter) Render(s race.Snapshot) {
	p.enqueue(wsMessage{Type: MessageState, State: api.SnapshotMap(s)})
}

func (p *socketPresenter) DisplayCountdown(mmss string) {
	p.enqueue(wsMessage{Type: MessageCountdown, Countdown: mmss})
}

func (p *socketPresenter) DisplayGameOver(message string) {
	p.enqueue(wsMessage{Type: MessageGameOver, Message: message})
}

// Close flushes what is queued and then closes the connection.
func (p *socketPresenter) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.signal()
	<-p.done
	return nil
}

func (p *socketPresenter) enqueue(m wsMessage) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if len(p.queue) == maxQueued {
		p.queue = p.queue[1:]
	}
	p.queue = append(p.queue, m)
	p.mu.Unlock()
	p.signal()
}

func (p *socketPresenter) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *socketPresenter) writeLoop() {
	defer close(p.done)
	defer p.conn.Close()

	for range p.wake {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		closed := p.closed
		p.mu.Unlock()

		for _, m := range batch {
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(m); err != nil {
				p.logger.Debug(fmt.Sprintf("Writing frame: %s", err))
				p.markClosed()
				return
			}
		}
		if closed {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over")
			_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

func (p *socketPresenter) markClosed() {
	p.mu.Lock()
	p.closed = true
	p.queue = nil
	p.mu.Unlock()
}
