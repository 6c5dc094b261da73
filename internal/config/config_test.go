package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Server.ClockTime)
	assert.Equal(t, 1000, cfg.Search.Simulations)
	assert.Equal(t, math.Sqrt2, cfg.Search.Exploration)
	assert.Equal(t, 50, cfg.Search.RolloutDepth)
	assert.Equal(t, EvaluatorLinear, cfg.Evaluator.Kind)
	assert.Equal(t, 10, cfg.Training.SessionEvery)
	assert.Empty(t, cfg.Training.NatsURL)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chessmcts.yaml")
	yaml := `
server:
  addr: ":8080"
search:
  simulations: 250
  time_budget: 2s
evaluator:
  kind: none
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CHESSMCTS_SEARCH_SIMULATIONS", "400")
	t.Setenv("CHESSMCTS_TRAINING_NATS_URL", "nats://localhost:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 400, cfg.Search.Simulations)
	assert.Equal(t, 2*time.Second, cfg.Search.TimeBudget)
	assert.Equal(t, EvaluatorNone, cfg.Evaluator.Kind)
	assert.Equal(t, "nats://localhost:4222", cfg.Training.NatsURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CHESSMCTS_EVALUATOR_KIND", "oracle")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
