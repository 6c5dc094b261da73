package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/benbeisheim/chessmcts-backend/internal/mcts"
	"github.com/benbeisheim/chessmcts-backend/internal/model"
	"github.com/benbeisheim/chessmcts-backend/internal/service"
	"github.com/benbeisheim/chessmcts-backend/internal/training"
)

type fakeLearner struct {
	sessions int
	lengths  []float64
}

func (f *fakeLearner) Statistics(context.Context) (training.Stats, error) {
	return training.Stats{GamesStored: len(f.lengths), SessionsRun: f.sessions, AverageGameLength: 30}, nil
}

func (f *fakeLearner) GameLengths(context.Context) ([]float64, error) {
	return f.lengths, nil
}

func (f *fakeLearner) RunSession(context.Context) error {
	f.sessions++
	return nil
}

func newTestShell() (*shell, *fakeLearner) {
	learner := &fakeLearner{lengths: []float64{20, 35, 35, 60}}
	return &shell{
		games: service.NewGameManager(service.ManagerOptions{
			Search: mcts.Options{Seed: 2, MaxNodes: 2000},
			Budget: mcts.Budget{Simulations: 20},
		}),
		learner: learner,
	}, learner
}

func TestShellPlaysAGame(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	sh, _ := newTestShell()
	var out bytes.Buffer

	err := sh.execute(ctx, "move e2e4", &out)
	is.True(err != nil) // no game yet

	is.NoErr(sh.execute(ctx, "new white", &out))
	is.True(sh.gameID != "")

	out.Reset()
	is.NoErr(sh.execute(ctx, "moves e2", &out))
	is.Equal(out.String(), "e3 e4\n")

	out.Reset()
	is.NoErr(sh.execute(ctx, "move e2e4", &out))
	is.True(bytes.Contains(out.Bytes(), []byte("1. e4 ")))
	is.True(bytes.Contains(out.Bytes(), []byte("white to move")))

	is.NoErr(sh.execute(ctx, "undo", &out))
	out.Reset()
	is.NoErr(sh.execute(ctx, "fen", &out))
	is.Equal(out.String(), model.StartFEN+"\n")

	is.True(sh.execute(ctx, "move e2e5", &out) != nil)
	is.True(sh.execute(ctx, "dance", &out) != nil)
	is.True(errors.Is(sh.execute(ctx, "exit", &out), errQuit))
}

func TestShellNewAsBlack(t *testing.T) {
	is := is.New(t)
	sh, _ := newTestShell()
	var out bytes.Buffer
	is.NoErr(sh.execute(context.Background(), "new black", &out))
	is.True(bytes.Contains(out.Bytes(), []byte("black to move")))

	first := sh.gameID
	is.NoErr(sh.execute(context.Background(), "new", &out))
	_, err := sh.games.State(first)
	is.True(errors.Is(err, service.ErrGameNotFound)) // the old game is dropped
}

func TestShellStatsAndTrain(t *testing.T) {
	is := is.New(t)
	sh, learner := newTestShell()
	var out bytes.Buffer
	is.NoErr(sh.execute(context.Background(), "train", &out))
	is.Equal(learner.sessions, 1)

	out.Reset()
	is.NoErr(sh.execute(context.Background(), "stats", &out))
	is.True(bytes.Contains(out.Bytes(), []byte("games stored:        4")))
	is.True(bytes.Contains(out.Bytes(), []byte("game lengths:")))
}

func TestNumbered(t *testing.T) {
	is := is.New(t)
	is.Equal(numbered([]string{"e4", "e5", "Nf3"}), []string{"1.", "e4", "e5", "2.", "Nf3"})
}
