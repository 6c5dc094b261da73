package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/benbeisheim/chessmcts-backend/internal/config"
	"github.com/benbeisheim/chessmcts-backend/internal/evaluator"
)

func TestNewEvaluator(t *testing.T) {
	is := is.New(t)
	e, err := NewEvaluator(config.EvaluatorConfig{Kind: config.EvaluatorNone})
	is.NoErr(err)
	is.True(e == nil)
	is.True(SearchEvaluator(e) == nil)

	e, err = NewEvaluator(config.EvaluatorConfig{
		Kind: config.EvaluatorLinear,
		Path: filepath.Join(t.TempDir(), "fresh.gob"),
	})
	is.NoErr(err)
	_, ok := e.(*evaluator.Linear)
	is.True(ok)
	is.True(SearchEvaluator(e) != nil)

	_, err = NewEvaluator(config.EvaluatorConfig{Kind: config.EvaluatorONNX, Path: "does-not-exist.onnx"})
	is.True(err != nil)
}

func TestSearchOptions(t *testing.T) {
	is := is.New(t)
	opts, budget := SearchOptions(config.SearchConfig{
		Simulations:  300,
		TimeBudget:   time.Second,
		Exploration:  1.2,
		RolloutDepth: 20,
		Seed:         5,
	})
	is.Equal(opts.Exploration, 1.2)
	is.Equal(opts.RolloutDepth, 20)
	is.Equal(opts.Seed, uint64(5))
	is.Equal(opts.CaptureBias, 0.7)
	is.Equal(budget.Simulations, 300)
	is.Equal(budget.Time, time.Second)
}

func TestNewLearning(t *testing.T) {
	is := is.New(t)
	cfg, err := config.Load("")
	is.NoErr(err)
	cfg.Training.DBPath = filepath.Join(t.TempDir(), "games.db")

	l, err := NewLearning(context.Background(), *cfg, nil)
	is.NoErr(err)
	st, err := l.Learner.Statistics(context.Background())
	is.NoErr(err)
	is.Equal(st.GamesStored, 0)
	is.NoErr(l.Close())
}
