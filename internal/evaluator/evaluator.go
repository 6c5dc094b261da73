// Package evaluator holds position evaluators the search can consult in
// place of random rollouts.
package evaluator

import (
	"context"
	"errors"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

var ErrNotTrainable = errors.New("evaluator does not support training")

// Sample pairs an encoded position with the final score of the game it
// came from, from white's point of view.
type Sample struct {
	Planes model.Planes
	Target float64
}

// Evaluator is what the learning loop needs: a position estimate in [0, 1]
// for white, and a way to fit it to finished games.
type Evaluator interface {
	Evaluate(ctx context.Context, planes model.Planes) (float64, error)
	TrainOnBatch(ctx context.Context, batch []Sample) error
}
