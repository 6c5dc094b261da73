package training

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// GameRecord is the published form of a finished game.
type GameRecord struct {
	ID      int64     `json:"id"`
	Moves   []string  `json:"moves"`
	Outcome float64   `json:"outcome"`
	Played  time.Time `json:"played"`
}

type Publisher interface {
	Publish(ctx context.Context, rec GameRecord) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, GameRecord) error { return nil }

// NATSPublisher sends finished games to a NATS subject so external
// trainers can consume them.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("chessmcts"))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, rec GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return retry.Do(
		func() error {
			return p.nc.Publish(p.subject, data)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Err(err).Uint("n", n).Str("subject", p.subject).Msg("publish-failed-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

func (p *NATSPublisher) Close() {
	p.nc.Close()
}
