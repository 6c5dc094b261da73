package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
	"github.com/benbeisheim/chessmcts-backend/internal/training"
)

var ErrTrainingDisabled = errors.New("training is not configured")

// StatsSource reports learning-loop statistics.
type StatsSource interface {
	Statistics(ctx context.Context) (training.Stats, error)
}

type GameService struct {
	gameManager *GameManager
	stats       StatsSource
}

// NewGameService wraps gameManager. stats may be nil.
func NewGameService(gameManager *GameManager, stats StatsSource) *GameService {
	return &GameService{
		gameManager: gameManager,
		stats:       stats,
	}
}

func (gs *GameService) CreateGame(ctx context.Context, humanColor model.Color) (GameView, error) {
	gameID := uuid.New().String()

	view, err := gs.gameManager.CreateGame(ctx, gameID, humanColor)
	if err != nil {
		return GameView{}, fmt.Errorf("failed to create game: %w", err)
	}
	return view, nil
}

func (gs *GameService) GetGameState(gameID string) (GameView, error) {
	return gs.gameManager.State(gameID)
}

func (gs *GameService) LegalMoves(gameID string, square string) ([]model.Position, error) {
	from, err := model.ParseSquare(square)
	if err != nil {
		return nil, err
	}
	return gs.gameManager.LegalMoves(gameID, from)
}

// MoveRequest is a move as clients send it: squares in algebraic form and
// an optional promotion piece name.
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

func (mr MoveRequest) parse() (from, to model.Position, promo model.PieceType, err error) {
	if from, err = model.ParseSquare(mr.From); err != nil {
		return
	}
	if to, err = model.ParseSquare(mr.To); err != nil {
		return
	}
	if mr.Promotion != "" {
		promo, err = model.ParsePieceType(mr.Promotion)
	}
	return
}

func (gs *GameService) HandleMove(ctx context.Context, gameID string, move MoveRequest) (GameView, error) {
	from, to, promo, err := move.parse()
	if err != nil {
		return GameView{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return gs.gameManager.ApplyMove(ctx, gameID, from, to, promo)
}

func (gs *GameService) Undo(gameID string) (GameView, error) {
	return gs.gameManager.UndoLastMove(gameID)
}

func (gs *GameService) Statistics(ctx context.Context) (training.Stats, error) {
	if gs.stats == nil {
		return training.Stats{}, ErrTrainingDisabled
	}
	return gs.stats.Statistics(ctx)
}

func (gs *GameService) RegisterConnection(gameID string, playerID string, conn Conn) error {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return err
	}
	s.RegisterConnection(playerID, conn)
	return nil
}

func (gs *GameService) UnregisterConnection(gameID string, playerID string, conn Conn) {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return
	}
	s.UnregisterConnection(playerID, conn)
}
