// Package bootstrap turns a config.Config into the running pieces shared by
// the server and the terminal client.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/benbeisheim/chessmcts-backend/internal/config"
	"github.com/benbeisheim/chessmcts-backend/internal/evaluator"
	"github.com/benbeisheim/chessmcts-backend/internal/mcts"
	"github.com/benbeisheim/chessmcts-backend/internal/training"
)

func SetupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("debug logging is on")
}

// NewEvaluator builds the configured evaluator. It returns nil for kind
// "none".
func NewEvaluator(cfg config.EvaluatorConfig) (evaluator.Evaluator, error) {
	switch cfg.Kind {
	case config.EvaluatorNone:
		return nil, nil
	case config.EvaluatorLinear:
		return evaluator.LoadLinearFile(cfg.Path, cfg.LearningRate)
	case config.EvaluatorONNX:
		return evaluator.LoadONNXFile(cfg.Path)
	}
	return nil, fmt.Errorf("%w: unknown evaluator kind %q", config.ErrInvalid, cfg.Kind)
}

// SearchEvaluator adapts a possibly nil evaluator to the search's
// interface without producing a typed nil.
func SearchEvaluator(e evaluator.Evaluator) mcts.Evaluator {
	if e == nil {
		return nil
	}
	return e
}

func SearchOptions(cfg config.SearchConfig) (mcts.Options, mcts.Budget) {
	opts := mcts.DefaultOptions()
	opts.Exploration = cfg.Exploration
	opts.RolloutDepth = cfg.RolloutDepth
	opts.MaxNodes = cfg.MaxNodes
	opts.Seed = cfg.Seed
	return opts, mcts.Budget{Simulations: cfg.Simulations, Time: cfg.TimeBudget}
}

// Learning bundles the learning loop with the resources it holds open.
type Learning struct {
	Learner *training.Learner
	closers []io.Closer
}

func (l *Learning) Close() error {
	var first error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewLearning opens the game store and, when a NATS URL is configured, the
// game publisher.
func NewLearning(ctx context.Context, cfg config.Config, eval evaluator.Evaluator) (*Learning, error) {
	store, err := training.OpenStore(ctx, cfg.Training.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening game store: %w", err)
	}
	l := &Learning{closers: []io.Closer{store}}

	var publisher training.Publisher
	if cfg.Training.NatsURL != "" {
		p, err := training.NewNATSPublisher(cfg.Training.NatsURL, cfg.Training.NatsSubject)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		publisher = p
		l.closers = append(l.closers, closerFunc(func() error { p.Close(); return nil }))
	}

	checkpoint := ""
	if cfg.Evaluator.Kind == config.EvaluatorLinear {
		checkpoint = cfg.Evaluator.Path
	}
	l.Learner = training.NewLearner(store, eval, publisher, training.Options{
		SessionEvery:   cfg.Training.SessionEvery,
		BatchSize:      cfg.Training.BatchSize,
		MaxGames:       cfg.Training.MaxGames,
		CheckpointPath: checkpoint,
	})
	return l, nil
}
