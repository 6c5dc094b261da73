package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/benbeisheim/chessmcts-backend/internal/mcts"
	"github.com/benbeisheim/chessmcts-backend/internal/model"
	"github.com/benbeisheim/chessmcts-backend/internal/ws"
)

// Conn is the part of a websocket connection a session writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SafeConn serialises writes to a Conn. A websocket connection allows only
// one concurrent writer.
type SafeConn struct {
	mu   sync.Mutex
	conn Conn
}

// NewSafeConn wraps conn. Wrapping a *SafeConn returns it unchanged.
func NewSafeConn(conn Conn) *SafeConn {
	if sc, ok := conn.(*SafeConn); ok {
		return sc
	}
	return &SafeConn{conn: conn}
}

func (c *SafeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *SafeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *SafeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// sameConn reports whether a registered connection is conn, wrapped or not.
func sameConn(registered *SafeConn, conn Conn) bool {
	return Conn(registered) == conn || registered.conn == conn
}

// The connections watching one session
type sessionConnections struct {
	connections map[string]*SafeConn // playerID -> connection
	mu          sync.RWMutex
}

// Session is one game between a human and the engine. All fields but the
// connections are guarded by mu.
type Session struct {
	ID          string
	mu          sync.Mutex
	state       *model.GameState
	san         []string
	human       model.Color
	searcher    *mcts.Searcher
	clocks      [2]*model.Clock
	recorded    bool
	connections *sessionConnections
}

func newSession(id string, human model.Color, searcher *mcts.Searcher, clockTime time.Duration) *Session {
	s := &Session{
		ID:       id,
		state:    model.NewGameState(),
		human:    human,
		searcher: searcher,
		clocks:   [2]*model.Clock{model.NewClock(clockTime), model.NewClock(clockTime)},
		connections: &sessionConnections{
			connections: make(map[string]*SafeConn),
		},
	}
	s.clocks[model.White].Start()
	return s
}

// GameView is the snapshot of a session sent to clients.
type GameView struct {
	ID              string               `json:"id"`
	FEN             string               `json:"fen"`
	Board           model.Board          `json:"boardState"`
	ToMove          model.Color          `json:"toMove"`
	HumanColor      model.Color          `json:"humanColor"`
	Status          model.GameStatus     `json:"status"`
	DrawReason      model.DrawReason     `json:"drawReason"`
	IsCheck         bool                 `json:"isCheck"`
	MoveHistory     []string             `json:"moveHistory"`
	CapturedPieces  model.CapturedPieces `json:"capturedPieces"`
	EnPassantTarget *model.Position      `json:"enPassantTarget"`
	LastMove        *model.Move          `json:"lastMove"`
	Resolve         *string              `json:"resolve"`
	Players         struct {
		White model.ClientPlayer `json:"white"`
		Black model.ClientPlayer `json:"black"`
	} `json:"players"`
}

// view must be called with s.mu held.
func (s *Session) view() GameView {
	v := GameView{
		ID:             s.ID,
		FEN:            s.state.FEN(),
		Board:          s.state.Board(),
		ToMove:         s.state.ToMove(),
		HumanColor:     s.human,
		Status:         s.state.Status(),
		DrawReason:     s.state.DrawReason(),
		IsCheck:        s.state.InCheck(s.state.ToMove()),
		MoveHistory:    append([]string{}, s.san...),
		CapturedPieces: s.state.Captured(),
	}
	if ep, ok := s.state.EnPassant(); ok {
		v.EnPassantTarget = &ep
	}
	if m, ok := s.state.LastMove(); ok {
		v.LastMove = &m
	}
	if _, over := s.state.Outcome(); over {
		resolve := "draw"
		if winner, ok := s.state.Winner(); ok {
			resolve = winner.String()
		}
		v.Resolve = &resolve
	}
	v.Players.White = s.player(model.White)
	v.Players.Black = s.player(model.Black)
	return v
}

func (s *Session) player(c model.Color) model.ClientPlayer {
	p := model.ClientPlayer{
		ID:       "engine",
		Kind:     model.Engine,
		Color:    c,
		TimeLeft: int(s.clocks[c].TimeLeft() / (100 * time.Millisecond)),
	}
	if c == s.human {
		p.ID, p.Kind = "you", model.Human
	}
	return p
}

// commit records a move already applied to the state and passes the clock
// to the other side. Must be called with s.mu held.
func (s *Session) commit(san string) {
	s.san = append(s.san, san)
	mover := s.state.ToMove().Opponent()
	s.clocks[mover].Stop()
	if !s.state.IsOver() {
		s.clocks[s.state.ToMove()].Start()
	}
}

// takeBack undoes one ply. Must be called with s.mu held.
func (s *Session) takeBack() bool {
	before := s.state.ToMove()
	if !s.state.UndoMove() {
		return false
	}
	s.san = s.san[:len(s.san)-1]
	s.clocks[before].Stop()
	s.clocks[s.state.ToMove()].Start()
	return true
}

// RegisterConnection adds conn as playerID's watcher and sends it the
// current view. Writes to conn go through a SafeConn from here on.
func (s *Session) RegisterConnection(playerID string, conn Conn) {
	safe := NewSafeConn(conn)
	s.connections.mu.Lock()
	if _, exists := s.connections.connections[playerID]; exists {
		// Keep the healthy connection and turn the newcomer away.
		s.connections.mu.Unlock()
		safe.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Connection already exists"),
		)
		safe.Close()
		return
	}
	s.connections.connections[playerID] = safe
	s.connections.mu.Unlock()
	log.Debug().Str("game-id", s.ID).Str("player-id", playerID).Msg("connection-registered")

	s.mu.Lock()
	v := s.view()
	s.mu.Unlock()
	s.broadcast(v)
}

func (s *Session) UnregisterConnection(playerID string, conn Conn) {
	s.connections.mu.Lock()
	defer s.connections.mu.Unlock()
	// Only the current connection may unregister itself.
	if current, ok := s.connections.connections[playerID]; ok && sameConn(current, conn) {
		delete(s.connections.connections, playerID)
		log.Debug().Str("game-id", s.ID).Str("player-id", playerID).Msg("connection-unregistered")
	}
}

func (s *Session) connectionCount() int {
	s.connections.mu.RLock()
	defer s.connections.mu.RUnlock()
	return len(s.connections.connections)
}

// broadcast sends v to every watcher, dropping connections that fail.
func (s *Session) broadcast(v GameView) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("game-id", s.ID).Msg("marshal-game-view")
		return
	}
	msg := ws.Message{Type: ws.MessageTypeGameState, Payload: payload}

	s.connections.mu.RLock()
	active := make(map[string]*SafeConn, len(s.connections.connections))
	for playerID, conn := range s.connections.connections {
		active[playerID] = conn
	}
	s.connections.mu.RUnlock()

	for playerID, conn := range active {
		if err := conn.WriteJSON(msg); err != nil {
			log.Warn().Err(err).Str("game-id", s.ID).Str("player-id", playerID).Msg("dropping-connection")
			s.connections.mu.Lock()
			if s.connections.connections[playerID] == conn {
				delete(s.connections.connections, playerID)
			}
			s.connections.mu.Unlock()
		}
	}
}
