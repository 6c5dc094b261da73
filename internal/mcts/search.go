// Package mcts chooses moves with Monte-Carlo Tree Search over the rules
// engine in package model.
package mcts

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

var (
	ErrNoSimulations  = errors.New("search stopped before any simulation ran")
	ErrSearchPanicked = errors.New("search panicked")
)

// ChildStat summarises one root move after a search.
type ChildStat struct {
	Move   model.Move `json:"move"`
	Visits int        `json:"visits"`
	Value  float64    `json:"value"`
}

type Result struct {
	Move model.Move
	// Found is false when the root position has no legal moves.
	Found       bool
	Simulations int
	Nodes       int
	Elapsed     time.Duration
	Children    []ChildStat
}

// Searcher runs searches. It is not safe for concurrent use; give each
// session its own.
type Searcher struct {
	opts      Options
	evaluator Evaluator
	rng       *frand.RNG
	logger    zerolog.Logger
}

// NewSearcher builds a Searcher. evaluator may be nil, in which case
// rollouts estimate every leaf.
func NewSearcher(opts Options, evaluator Evaluator) *Searcher {
	opts = opts.withDefaults()
	return &Searcher{
		opts:      opts,
		evaluator: evaluator,
		rng:       newRNG(opts.Seed),
		logger:    log.With().Str("component", "mcts").Logger(),
	}
}

func (s *Searcher) Options() Options {
	return s.opts
}

// Search looks for the best move for the side to move in state. state is
// never modified. The loop checks the budget and ctx between iterations.
func (s *Searcher) Search(ctx context.Context, state *model.GameState, budget Budget) (Result, error) {
	start := time.Now()
	if state.IsOver() || len(state.LegalMoves(state.ToMove())) == 0 {
		return Result{Elapsed: time.Since(start)}, nil
	}
	if budget.Simulations <= 0 && budget.Time <= 0 {
		budget.Simulations = DefaultSimulations
	}
	var deadline time.Time
	if budget.Time > 0 {
		deadline = start.Add(budget.Time)
	}

	scratch := state.Clone()
	t := newTree(scratch, s.opts.MaxNodes)
	evaluator := s.evaluator
	sims := 0

	for {
		if budget.Simulations > 0 && sims >= budget.Simulations {
			break
		}
		if sims > 0 && sims%s.opts.YieldEvery == 0 {
			runtime.Gosched()
		}
		if ctx.Err() != nil || (!deadline.IsZero() && !time.Now().Before(deadline)) {
			break
		}

		leaf, depth := s.descend(t, scratch)
		var result float64
		result, evaluator = s.simulate(ctx, scratch, t.nodes[leaf].terminal, evaluator)
		t.backpropagate(leaf, result)
		for i := 0; i < depth; i++ {
			scratch.UndoMove()
		}
		sims++
	}

	if sims == 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, errors.Join(ErrNoSimulations, err)
		}
		return Result{}, ErrNoSimulations
	}

	res := Result{
		Simulations: sims,
		Nodes:       len(t.nodes),
		Elapsed:     time.Since(start),
	}
	for _, ci := range t.nodes[0].children {
		c := &t.nodes[ci]
		res.Children = append(res.Children, ChildStat{Move: c.move, Visits: c.visits, Value: c.value()})
	}
	if best, ok := t.mostVisitedChild(); ok {
		res.Move, res.Found = t.nodes[best].move, true
	}
	s.logger.Debug().
		Int("simulations", sims).
		Int("nodes", res.Nodes).
		Dur("elapsed", res.Elapsed).
		Str("move", res.Move.UCI()).
		Msg("search-done")
	return res, nil
}

// descend runs selection and expansion. It applies every move on the path
// to scratch and returns the reached node with the number of moves applied.
func (s *Searcher) descend(t *tree, scratch *model.GameState) (int32, int) {
	idx, depth := int32(0), 0
	for {
		n := &t.nodes[idx]
		if n.terminal {
			return idx, depth
		}
		if !n.expanded {
			n.untried = scratch.LegalMoves(scratch.ToMove())
			n.expanded = true
		}
		if len(n.untried) > 0 && !t.full() {
			pick := s.rng.Intn(len(n.untried))
			m := n.untried[pick]
			last := len(n.untried) - 1
			n.untried[pick] = n.untried[last]
			n.untried = n.untried[:last]
			if !scratch.ApplyMove(m) {
				panic("mcts: generated move rejected by " + scratch.FEN())
			}
			return t.addChild(idx, m, scratch.IsOver()), depth + 1
		}
		if len(n.children) == 0 {
			// Node budget exhausted before this node got any children.
			return idx, depth
		}
		idx = t.bestUCTChild(idx, s.opts.Exploration)
		if !scratch.ApplyMove(t.nodes[idx].move) {
			panic("mcts: tree move rejected by " + scratch.FEN())
		}
		depth++
	}
}

// simulate estimates scratch from the point of view of the player who just
// moved. It returns the evaluator to use from now on, which is nil once the
// evaluator has failed.
func (s *Searcher) simulate(ctx context.Context, scratch *model.GameState, terminal bool, evaluator Evaluator) (float64, Evaluator) {
	mover := scratch.ToMove().Opponent()
	if terminal {
		return scorePosition(scratch, mover), evaluator
	}
	if evaluator != nil {
		v, err := evaluator.Evaluate(ctx, model.Encode(scratch))
		if err == nil {
			return fromWhite(clamp01(v), mover), evaluator
		}
		s.logger.Warn().Err(err).Msg("evaluator-failed-falling-back-to-rollouts")
		evaluator = nil
	}
	return s.rollout(scratch, mover), evaluator
}

// ChooseMove searches and, if the search fails or panics, falls back to a
// uniformly random legal move. ok is false only when there is no legal move
// at all. Panics wrapping model.ErrInvariant are re-raised.
func (s *Searcher) ChooseMove(ctx context.Context, state *model.GameState, budget Budget) (model.Move, bool) {
	res, err := s.safeSearch(ctx, state, budget)
	if err == nil {
		return res.Move, res.Found
	}
	s.logger.Error().Err(err).Msg("search-failed-playing-random-move")
	return RandomMove(state, s.rng)
}

// safeSearch runs Search, turning a panic from the evaluator or the search
// itself into an error. Search works on a clone, so state is intact.
func (s *Searcher) safeSearch(ctx context.Context, state *model.GameState, budget Budget) (res Result, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(error); ok && errors.Is(e, model.ErrInvariant) {
			panic(r)
		}
		err = fmt.Errorf("%w: %v", ErrSearchPanicked, r)
	}()
	return s.Search(ctx, state, budget)
}

// RandomMove picks a legal move uniformly.
func RandomMove(state *model.GameState, rng *frand.RNG) (model.Move, bool) {
	moves := state.LegalMoves(state.ToMove())
	if len(moves) == 0 || state.IsOver() {
		return model.Move{}, false
	}
	return moves[rng.Intn(len(moves))], true
}

func fromWhite(v float64, perspective model.Color) float64 {
	if perspective == model.White {
		return v
	}
	return 1 - v
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
