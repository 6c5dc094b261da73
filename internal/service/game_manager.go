// Package service owns the game sessions: one rules state per game, the
// engine that answers the human, and the hand-off of finished games to the
// learning loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/benbeisheim/chessmcts-backend/internal/mcts"
	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGameExists    = errors.New("game already exists")
	ErrIllegalMove   = errors.New("illegal move")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrGameOver      = errors.New("game is over")
)

// Recorder receives finished games. outcome is white's score.
type Recorder interface {
	RecordCompletedGame(ctx context.Context, moves []model.Move, outcome float64) error
}

type ManagerOptions struct {
	Search    mcts.Options
	Budget    mcts.Budget
	Evaluator mcts.Evaluator
	Recorder  Recorder
	ClockTime time.Duration
	// EngineTimeout bounds one engine reply on top of Budget.
	EngineTimeout time.Duration
}

type GameManager struct {
	games  map[string]*Session
	mu     sync.RWMutex
	opts   ManagerOptions
	logger zerolog.Logger
}

func NewGameManager(opts ManagerOptions) *GameManager {
	if opts.ClockTime <= 0 {
		opts.ClockTime = 10 * time.Minute
	}
	if opts.EngineTimeout <= 0 {
		opts.EngineTimeout = 10 * time.Second
	}
	return &GameManager{
		games:  make(map[string]*Session),
		opts:   opts,
		logger: log.With().Str("component", "game-manager").Logger(),
	}
}

// CreateGame starts a game with the human playing humanColor. When the
// human is black the engine makes the first move before this returns.
func (gm *GameManager) CreateGame(ctx context.Context, gameID string, humanColor model.Color) (GameView, error) {
	searcher := mcts.NewSearcher(gm.opts.Search, gm.opts.Evaluator)
	s := newSession(gameID, humanColor, searcher, gm.opts.ClockTime)

	gm.mu.Lock()
	if _, exists := gm.games[gameID]; exists {
		gm.mu.Unlock()
		return GameView{}, ErrGameExists
	}
	gm.games[gameID] = s
	gm.mu.Unlock()
	gm.logger.Info().Str("game-id", gameID).Stringer("human", humanColor).Msg("game-created")

	s.mu.Lock()
	defer s.mu.Unlock()
	if humanColor != s.state.ToMove() {
		if err := gm.engineReply(ctx, s); err != nil {
			return GameView{}, err
		}
	}
	return s.view(), nil
}

func (gm *GameManager) GetGame(gameID string) (*Session, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	s, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return s, nil
}

func (gm *GameManager) RemoveGame(gameID string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	delete(gm.games, gameID)
}

func (gm *GameManager) State(gameID string) (GameView, error) {
	s, err := gm.GetGame(gameID)
	if err != nil {
		return GameView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

func (gm *GameManager) Status(gameID string) (model.GameStatus, error) {
	s, err := gm.GetGame(gameID)
	if err != nil {
		return model.Playing, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status(), nil
}

// LegalMoves lists the destinations of the piece on from.
func (gm *GameManager) LegalMoves(gameID string, from model.Position) ([]model.Position, error) {
	s, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsOver() {
		return []model.Position{}, nil
	}
	return s.state.LegalMovesFrom(from), nil
}

// ApplyMove plays the human's move and, unless that ends the game, the
// engine's reply. promotion may be NoPiece, meaning queen.
func (gm *GameManager) ApplyMove(ctx context.Context, gameID string, from, to model.Position, promotion model.PieceType) (view GameView, err error) {
	s, err := gm.GetGame(gameID)
	if err != nil {
		return GameView{}, err
	}
	s.mu.Lock()
	defer func() {
		if err == nil {
			view = s.view()
		}
		s.mu.Unlock()
		if err == nil {
			s.broadcast(view)
		}
	}()
	defer guardInvariant(&err)

	if s.state.IsOver() {
		return GameView{}, ErrGameOver
	}
	if s.state.ToMove() != s.human {
		return GameView{}, ErrNotYourTurn
	}
	m, ok := findMove(s.state, from, to, promotion)
	if !ok {
		return GameView{}, fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
	}
	san := s.state.SAN(m)
	plies := s.state.Plies()
	if !s.state.ApplyMove(m) {
		return GameView{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}
	s.commit(san)
	gm.logger.Debug().Str("game-id", gameID).Str("move", san).Msg("human-moved")

	if s.state.IsOver() {
		gm.finish(ctx, s)
		return GameView{}, nil
	}
	if err := gm.engineReply(ctx, s); err != nil {
		// Give the turn back to the human.
		for s.state.Plies() > plies {
			s.takeBack()
		}
		gm.logger.Error().Err(err).Str("game-id", gameID).Msg("engine-reply-failed-move-rolled-back")
		return GameView{}, err
	}
	return GameView{}, nil
}

// findMove resolves squares and promotion to a legal move of the side to
// move, defaulting promotions to a queen.
func findMove(state *model.GameState, from, to model.Position, promotion model.PieceType) (model.Move, bool) {
	for _, m := range state.LegalMoves(state.ToMove()) {
		if m.From != from || m.To != to {
			continue
		}
		switch {
		case m.Promotion == model.NoPiece && promotion == model.NoPiece:
			return m, true
		case m.Promotion == model.NoPiece:
			continue
		case m.Promotion == promotion, promotion == model.NoPiece && m.Promotion == model.Queen:
			return m, true
		}
	}
	return model.Move{}, false
}

// UndoLastMove takes back the human's last move along with the engine's
// reply to it.
func (gm *GameManager) UndoLastMove(gameID string) (view GameView, err error) {
	s, err := gm.GetGame(gameID)
	if err != nil {
		return GameView{}, err
	}
	s.mu.Lock()
	defer func() {
		if err == nil {
			view = s.view()
		}
		s.mu.Unlock()
		if err == nil {
			s.broadcast(view)
		}
	}()

	plies := 1
	if s.state.ToMove() == s.human {
		plies = 2
	}
	if s.state.Plies() < plies {
		return GameView{}, ErrNothingToUndo
	}
	for i := 0; i < plies; i++ {
		s.takeBack()
	}
	gm.logger.Debug().Str("game-id", gameID).Int("plies", plies).Msg("undo")
	return GameView{}, nil
}

// engineReply searches for and plays the engine's move. Must be called with
// s.mu held.
func (gm *GameManager) engineReply(ctx context.Context, s *Session) (err error) {
	defer guardInvariant(&err)
	ctx, cancel := context.WithTimeout(ctx, gm.opts.EngineTimeout)
	defer cancel()

	m, ok := s.searcher.ChooseMove(ctx, s.state, gm.opts.Budget)
	if !ok {
		return nil
	}
	san := s.state.SAN(m)
	if !s.state.ApplyMove(m) {
		return fmt.Errorf("%w: engine chose illegal move %s", model.ErrInvariant, m.UCI())
	}
	s.commit(san)
	gm.logger.Debug().Str("game-id", s.ID).Str("move", san).Msg("engine-moved")
	if s.state.IsOver() {
		gm.finish(ctx, s)
	}
	return nil
}

// finish hands a finished game to the recorder once.
func (gm *GameManager) finish(ctx context.Context, s *Session) {
	outcome, _ := s.state.Outcome()
	gm.logger.Info().
		Str("game-id", s.ID).
		Stringer("status", s.state.Status()).
		Float64("outcome", outcome).
		Msg("game-over")
	if s.recorded || gm.opts.Recorder == nil {
		return
	}
	s.recorded = true
	// The engine's deadline must not cut off storage.
	if err := gm.opts.Recorder.RecordCompletedGame(context.WithoutCancel(ctx), s.state.Log(), outcome); err != nil {
		gm.logger.Error().Err(err).Str("game-id", s.ID).Msg("record-game-failed")
	}
}

// guardInvariant turns a corrupted-position panic from the rules engine
// into an error. Any other panic is re-raised.
func guardInvariant(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok && errors.Is(e, model.ErrInvariant) {
		log.Error().Err(e).Msg("position-invariant-violated")
		*err = e
		return
	}
	panic(r)
}
