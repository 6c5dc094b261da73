// Package training stores finished games and periodically fits the position
// evaluator to them.
package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
	"lukechampine.com/frand"

	"github.com/benbeisheim/chessmcts-backend/internal/evaluator"
	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

var (
	ErrInvalidOutcome = errors.New("outcome must be 0, 0.5 or 1")
	ErrNoEvaluator    = errors.New("no trainable evaluator configured")
	ErrNoGames        = errors.New("no stored games to train on")
)

type Options struct {
	// SessionEvery triggers a training session after that many recorded
	// games. Zero disables automatic sessions.
	SessionEvery int
	BatchSize    int
	// MaxGames bounds how many recent games one session replays.
	MaxGames int
	// CheckpointPath, if set, is where a trained evaluator is saved after
	// each session. The evaluator must have a SaveFile method.
	CheckpointPath string
}

type Stats struct {
	GamesStored       int       `json:"gamesStored"`
	SessionsRun       int       `json:"sessionsRun"`
	LastSessionTime   time.Time `json:"lastSessionTime"`
	AverageGameLength float64   `json:"averageGameLength"`
}

type checkpointer interface {
	SaveFile(path string) error
}

// Learner is the learning loop: it records completed games and turns them
// into training sessions for the evaluator.
type Learner struct {
	store     *Store
	eval      evaluator.Evaluator
	publisher Publisher
	opts      Options
	logger    zerolog.Logger

	mu      sync.Mutex
	pending int
	// trigger is signalled when enough games are pending; Run drains it.
	trigger chan struct{}
}

// NewLearner builds a learner. eval and publisher may be nil.
func NewLearner(store *Store, eval evaluator.Evaluator, publisher Publisher, opts Options) *Learner {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}
	if opts.MaxGames <= 0 {
		opts.MaxGames = 500
	}
	return &Learner{
		store:     store,
		eval:      eval,
		publisher: publisher,
		opts:      opts,
		logger:    log.With().Str("component", "learner").Logger(),
		trigger:   make(chan struct{}, 1),
	}
}

// RecordCompletedGame stores a finished game. outcome is white's score.
func (l *Learner) RecordCompletedGame(ctx context.Context, moves []model.Move, outcome float64) error {
	if outcome != 0 && outcome != 0.5 && outcome != 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidOutcome, outcome)
	}
	uci := lo.Map(moves, func(m model.Move, _ int) string { return m.UCI() })
	now := time.Now()
	id, err := l.store.InsertGame(ctx, uci, outcome, now)
	if err != nil {
		return err
	}
	l.logger.Info().Int64("game-id", id).Int("plies", len(uci)).Float64("outcome", outcome).Msg("game-recorded")

	if err := l.publisher.Publish(ctx, GameRecord{ID: id, Moves: uci, Outcome: outcome, Played: now}); err != nil {
		// Storage succeeded; publishing is best effort.
		l.logger.Warn().Err(err).Int64("game-id", id).Msg("game-publish-failed")
	}

	l.mu.Lock()
	l.pending++
	due := l.opts.SessionEvery > 0 && l.pending >= l.opts.SessionEvery
	if due {
		l.pending = 0
	}
	l.mu.Unlock()
	if due {
		select {
		case l.trigger <- struct{}{}:
		default:
		}
	}
	return nil
}

func (l *Learner) Statistics(ctx context.Context) (Stats, error) {
	lengths, err := l.store.GameLengths(ctx)
	if err != nil {
		return Stats{}, err
	}
	sessions, last, err := l.store.SessionSummary(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		GamesStored:     len(lengths),
		SessionsRun:     sessions,
		LastSessionTime: last,
	}
	if len(lengths) > 0 {
		st.AverageGameLength = stat.Mean(lengths, nil)
	}
	return st, nil
}

// GameLengths exposes the stored ply counts, for plotting.
func (l *Learner) GameLengths(ctx context.Context) ([]float64, error) {
	return l.store.GameLengths(ctx)
}

// Run executes a training session each time enough games have been
// recorded, until ctx is done.
func (l *Learner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.trigger:
			if err := l.RunSession(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error().Err(err).Msg("training-session-failed")
			}
		}
	}
}

// RunSession replays recent games, labels every position with its game's
// outcome, and trains the evaluator on the result in shuffled batches.
func (l *Learner) RunSession(ctx context.Context) error {
	if l.eval == nil {
		return ErrNoEvaluator
	}
	started := time.Now()
	games, err := l.store.RecentGames(ctx, l.opts.MaxGames)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		return ErrNoGames
	}
	var samples []evaluator.Sample
	for _, g := range games {
		s, err := replaySamples(g)
		if err != nil {
			l.logger.Warn().Err(err).Int64("game-id", g.ID).Msg("skipping-unreplayable-game")
			continue
		}
		samples = append(samples, s...)
	}
	frand.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
	for _, batch := range lo.Chunk(samples, l.opts.BatchSize) {
		if err := l.eval.TrainOnBatch(ctx, batch); err != nil {
			return fmt.Errorf("training batch: %w", err)
		}
	}
	finished := time.Now()
	if err := l.store.InsertSession(ctx, started, finished, len(games), len(samples)); err != nil {
		return err
	}
	if c, ok := l.eval.(checkpointer); ok && l.opts.CheckpointPath != "" {
		if err := c.SaveFile(l.opts.CheckpointPath); err != nil {
			l.logger.Error().Err(err).Str("path", l.opts.CheckpointPath).Msg("checkpoint-failed")
		}
	}
	l.logger.Info().
		Int("games", len(games)).
		Int("samples", len(samples)).
		Dur("elapsed", finished.Sub(started)).
		Msg("training-session-done")
	return nil
}

func replaySamples(g StoredGame) ([]evaluator.Sample, error) {
	s := model.NewGameState()
	samples := make([]evaluator.Sample, 0, len(g.Moves)+1)
	samples = append(samples, evaluator.Sample{Planes: model.Encode(s), Target: g.Outcome})
	for _, text := range g.Moves {
		if _, err := s.ApplyUCI(text); err != nil {
			return nil, err
		}
		samples = append(samples, evaluator.Sample{Planes: model.Encode(s), Target: g.Outcome})
	}
	return samples, nil
}
