package model

type PlayerKind string

const (
	Human  PlayerKind = "human"
	Engine PlayerKind = "engine"
)

// ClientPlayer is one seat of a game as shown to clients.
type ClientPlayer struct {
	ID       string     `json:"name"`
	Kind     PlayerKind `json:"kind"`
	Color    Color      `json:"color"`
	TimeLeft int        `json:"timeLeft"` // tenths of a second
}
