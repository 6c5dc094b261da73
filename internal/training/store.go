package training

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	moves      TEXT    NOT NULL,
	plies      INTEGER NOT NULL,
	outcome    REAL    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	games       INTEGER NOT NULL,
	samples     INTEGER NOT NULL
);`

// StoredGame is one finished game. Moves are in UCI text.
type StoredGame struct {
	ID        int64
	Moves     []string
	Outcome   float64
	CreatedAt time.Time
}

// Store keeps finished games and training sessions in sqlite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the sqlite database at dsn. Use
// ":memory:" for a throwaway store.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// An in-memory database lives per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertGame(ctx context.Context, moves []string, outcome float64, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (moves, plies, outcome, created_at) VALUES (?, ?, ?, ?)`,
		strings.Join(moves, " "), len(moves), outcome, at.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("inserting game: %w", err)
	}
	return res.LastInsertId()
}

// RecentGames returns up to limit games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]StoredGame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, moves, outcome, created_at FROM games ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var games []StoredGame
	for rows.Next() {
		var (
			g     StoredGame
			moves string
			at    int64
		)
		if err := rows.Scan(&g.ID, &moves, &g.Outcome, &at); err != nil {
			return nil, err
		}
		g.Moves = strings.Fields(moves)
		g.CreatedAt = time.Unix(0, at)
		games = append(games, g)
	}
	return games, rows.Err()
}

// GameLengths lists the ply count of every stored game.
func (s *Store) GameLengths(ctx context.Context) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT plies FROM games ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lengths []float64
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		lengths = append(lengths, float64(n))
	}
	return lengths, rows.Err()
}

func (s *Store) InsertSession(ctx context.Context, started, finished time.Time, games, samples int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, finished_at, games, samples) VALUES (?, ?, ?, ?)`,
		started.UnixNano(), finished.UnixNano(), games, samples)
	return err
}

// SessionSummary returns the number of sessions and when the latest one
// finished. last is the zero time when there are none.
func (s *Store) SessionSummary(ctx context.Context) (count int, last time.Time, err error) {
	var lastNano sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(finished_at) FROM sessions`).Scan(&count, &lastNano)
	if err != nil {
		return 0, time.Time{}, err
	}
	if lastNano.Valid {
		last = time.Unix(0, lastNano.Int64)
	}
	return count, last, nil
}
