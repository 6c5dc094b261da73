package mcts

import (
	"github.com/samber/lo"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

// rollout plays from scratch with the biased random policy until the game
// ends or the depth cap is hit, scores the final position for perspective,
// and rewinds scratch.
func (s *Searcher) rollout(scratch *model.GameState, perspective model.Color) float64 {
	plies := 0
	for plies < s.opts.RolloutDepth && !scratch.IsOver() {
		m := s.rolloutMove(scratch)
		if !scratch.ApplyMove(m) {
			panic("mcts: rollout move rejected by " + scratch.FEN())
		}
		plies++
	}
	result := scorePosition(scratch, perspective)
	for ; plies > 0; plies-- {
		scratch.UndoMove()
	}
	return result
}

func (s *Searcher) rolloutMove(scratch *model.GameState) model.Move {
	moves := scratch.LegalMoves(scratch.ToMove())
	captures := lo.Filter(moves, func(m model.Move, _ int) bool {
		return m.IsCapture()
	})
	if len(captures) > 0 && s.rng.Float64() < s.opts.CaptureBias {
		return captures[s.rng.Intn(len(captures))]
	}
	if s.rng.Float64() < s.opts.CheckBias {
		checks := lo.Filter(moves, func(m model.Move, _ int) bool {
			return scratch.GivesCheck(m)
		})
		if len(checks) > 0 {
			return checks[s.rng.Intn(len(checks))]
		}
	}
	return moves[s.rng.Intn(len(moves))]
}

// scorePosition is 1 or 0 for checkmate, and otherwise the share of the
// material on the board that belongs to perspective.
func scorePosition(state *model.GameState, perspective model.Color) float64 {
	if winner, ok := state.Winner(); ok {
		if winner == perspective {
			return 1
		}
		return 0
	}
	return materialRatio(state, perspective)
}

func materialRatio(state *model.GameState, perspective model.Color) float64 {
	own := state.Material(perspective)
	total := own + state.Material(perspective.Opponent())
	if total == 0 {
		return 0.5
	}
	return float64(own) / float64(total)
}
