// Package config loads server and engine settings from defaults, an
// optional YAML file and CHESSMCTS_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CHESSMCTS"

type Config struct {
	Debug     bool            `mapstructure:"debug"`
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	Training  TrainingConfig  `mapstructure:"training"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	AllowOrigins  string        `mapstructure:"allow_origins"`
	ClockTime     time.Duration `mapstructure:"clock_time"`
	EngineTimeout time.Duration `mapstructure:"engine_timeout"`
}

type SearchConfig struct {
	Simulations  int           `mapstructure:"simulations"`
	TimeBudget   time.Duration `mapstructure:"time_budget"`
	Exploration  float64       `mapstructure:"exploration"`
	RolloutDepth int           `mapstructure:"rollout_depth"`
	MaxNodes     int           `mapstructure:"max_nodes"`
	Seed         uint64        `mapstructure:"seed"`
}

// EvaluatorConfig selects the position evaluator. Kind is "none",
// "linear" or "onnx".
type EvaluatorConfig struct {
	Kind         string  `mapstructure:"kind"`
	Path         string  `mapstructure:"path"`
	LearningRate float64 `mapstructure:"learning_rate"`
}

type TrainingConfig struct {
	DBPath       string `mapstructure:"db_path"`
	SessionEvery int    `mapstructure:"session_every"`
	BatchSize    int    `mapstructure:"batch_size"`
	MaxGames     int    `mapstructure:"max_games"`
	NatsURL      string `mapstructure:"nats_url"`
	NatsSubject  string `mapstructure:"nats_subject"`
}

const (
	EvaluatorNone   = "none"
	EvaluatorLinear = "linear"
	EvaluatorONNX   = "onnx"
)

var ErrInvalid = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.allow_origins", "http://localhost:5173")
	v.SetDefault("server.clock_time", 10*time.Minute)
	v.SetDefault("server.engine_timeout", 10*time.Second)
	v.SetDefault("search.simulations", 1000)
	v.SetDefault("search.time_budget", 0)
	v.SetDefault("search.exploration", math.Sqrt2)
	v.SetDefault("search.rollout_depth", 50)
	v.SetDefault("search.max_nodes", 0)
	v.SetDefault("search.seed", 0)
	v.SetDefault("evaluator.kind", EvaluatorLinear)
	v.SetDefault("evaluator.path", "linear.gob")
	v.SetDefault("evaluator.learning_rate", 0.01)
	v.SetDefault("training.db_path", "chessmcts.db")
	v.SetDefault("training.session_every", 10)
	v.SetDefault("training.batch_size", 256)
	v.SetDefault("training.max_games", 500)
	v.SetDefault("training.nats_url", "")
	v.SetDefault("training.nats_subject", "chessmcts.games")
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Evaluator.Kind {
	case EvaluatorNone, EvaluatorLinear, EvaluatorONNX:
	default:
		return fmt.Errorf("%w: unknown evaluator kind %q", ErrInvalid, c.Evaluator.Kind)
	}
	if c.Evaluator.Kind == EvaluatorONNX && c.Evaluator.Path == "" {
		return fmt.Errorf("%w: onnx evaluator needs a path", ErrInvalid)
	}
	if c.Search.Simulations < 0 || c.Search.TimeBudget < 0 {
		return fmt.Errorf("%w: negative search budget", ErrInvalid)
	}
	if c.Server.ClockTime <= 0 {
		return fmt.Errorf("%w: clock time must be positive", ErrInvalid)
	}
	return nil
}
