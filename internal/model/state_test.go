package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

type snapshot struct {
	fen      string
	board    Board
	toMove   Color
	captured CapturedPieces
	castling CastlingRights
	status   GameStatus
	plies    int
	reps     int
}

func takeSnapshot(s *GameState) snapshot {
	return snapshot{
		fen:      s.FEN(),
		board:    s.Board(),
		toMove:   s.ToMove(),
		captured: s.Captured(),
		castling: s.Castling(),
		status:   s.Status(),
		plies:    s.Plies(),
		reps:     s.RepetitionCount(),
	}
}

func TestApplyUndoRoundTrip(t *testing.T) {
	rng := frand.NewCustom(make([]byte, 32), 1024, 12)
	for game := 0; game < 8; game++ {
		s := NewGameState()
		for ply := 0; ply < 150 && !s.IsOver(); ply++ {
			moves := s.LegalMoves(s.ToMove())
			require.NotEmpty(t, moves)
			before := takeSnapshot(s)
			for _, m := range moves {
				require.True(t, s.ApplyMove(m))
				require.True(t, s.UndoMove())
				require.Equal(t, before, takeSnapshot(s), "undo of %s in %s", m, before.fen)
			}
			require.True(t, s.ApplyMove(moves[rng.Intn(len(moves))]))
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewGameState()
	_, err := s.ApplyUCI("e2e4")
	require.NoError(t, err)
	c := s.Clone()
	_, err = c.ApplyUCI("d7d5")
	require.NoError(t, err)
	_, err = c.ApplyUCI("e4d5")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Plies())
	assert.Empty(t, s.Captured().White)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", s.FEN())

	require.True(t, s.UndoMove())
	assert.Equal(t, 3, c.Plies())
}

func TestUndoEmptyHistory(t *testing.T) {
	s := NewGameState()
	assert.False(t, s.UndoMove())
	assert.Equal(t, StartFEN, s.FEN())
}

func TestFoolsMate(t *testing.T) {
	s := NewGameState()
	for _, uci := range []string{"f2f3", "e7e5", "g2g4"} {
		_, err := s.ApplyUCI(uci)
		require.NoError(t, err)
	}
	m, err := s.ApplyUCI("d8h4")
	require.NoError(t, err)

	assert.Equal(t, Checkmate, s.Status())
	winner, ok := s.Winner()
	require.True(t, ok)
	assert.Equal(t, Black, winner)
	score, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, s.LegalMoves(White))
	assert.True(t, s.InCheck(White))

	require.True(t, s.UndoMove())
	assert.Equal(t, "Qh4#", s.SAN(m))
}

func TestTerminalStateRejectsMoves(t *testing.T) {
	s, err := NewGameStateFromFEN("8/8/8/4k3/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	require.True(t, s.IsOver())
	_, ok := s.Apply(Position{X: 4, Y: 7}, Position{X: 4, Y: 6}, NoPiece)
	assert.False(t, ok)
}

func TestPromotionSuffixMustMatch(t *testing.T) {
	s := NewGameState()
	_, err := s.ApplyUCI("e2e4q")
	assert.Error(t, err)
	assert.Equal(t, StartFEN, s.FEN())

	s, err = NewGameStateFromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	require.NoError(t, err)
	m, err := s.Clone().ApplyUCI("a7a8")
	require.NoError(t, err)
	assert.Equal(t, Queen, m.Promotion)
	m, err = s.ApplyUCI("a7a8r")
	require.NoError(t, err)
	assert.Equal(t, Rook, m.Promotion)
}

func TestStalemate(t *testing.T) {
	s, err := NewGameStateFromFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, Stalemate, s.Status())
	assert.Empty(t, s.LegalMoves(Black))
	assert.False(t, s.InCheck(Black))
	score, ok := s.Outcome()
	assert.True(t, ok)
	assert.Equal(t, 0.5, score)
}

func TestCheckmateClassification(t *testing.T) {
	// Back rank mate.
	s, err := NewGameStateFromFEN("3R2k1/5ppp/8/8/8/8/8/6K1 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, Checkmate, s.Status())
	assert.Empty(t, s.LegalMoves(s.ToMove()))
	assert.True(t, s.InCheck(s.ToMove()))
}

func TestInsufficientMaterial(t *testing.T) {
	for _, fen := range []string{
		"8/8/8/4k3/8/8/8/4K3 w - - 0 1",
		"8/8/8/4k3/8/8/8/4K3 b - - 0 1",
		"8/8/8/4k3/8/8/8/2B1K3 w - - 0 1",
		"8/8/8/4k3/8/8/8/2B1K3 b - - 0 1",
		"8/8/8/4k3/8/8/8/1N2K3 b - - 0 1",
		"8/8/8/2b1k3/8/8/8/2B1K3 w - - 0 1",
	} {
		s, err := NewGameStateFromFEN(fen)
		require.NoError(t, err, fen)
		assert.Equal(t, Draw, s.Status(), fen)
		assert.Equal(t, InsufficientMaterial, s.DrawReason(), fen)
	}

	for _, fen := range []string{
		"8/8/8/4k3/8/8/8/1NB1K3 w - - 0 1",
		"8/8/8/4k3/8/8/4P3/4K3 w - - 0 1",
		"8/8/8/1b2k3/8/8/8/2B1K3 w - - 0 1",
	} {
		s, err := NewGameStateFromFEN(fen)
		require.NoError(t, err, fen)
		assert.Equal(t, Playing, s.Status(), fen)
	}
}

func TestThreefoldRepetition(t *testing.T) {
	s := NewGameState()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for round := 0; round < 2; round++ {
		for i, uci := range shuffle {
			require.False(t, s.IsOver(), "round %d move %d", round, i)
			_, err := s.ApplyUCI(uci)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 3, s.RepetitionCount())
	assert.Equal(t, Draw, s.Status())
	assert.Equal(t, ThreefoldRepetition, s.DrawReason())

	require.True(t, s.UndoMove())
	assert.Equal(t, Playing, s.Status())
}

func TestFiftyMoveRule(t *testing.T) {
	s, err := NewGameStateFromFEN("8/8/8/4k3/8/8/8/R3K3 w - - 99 60")
	require.NoError(t, err)
	assert.Equal(t, Playing, s.Status())
	_, err = s.ApplyUCI("a1a2")
	require.NoError(t, err)
	assert.Equal(t, 100, s.Halfmove())
	assert.Equal(t, Draw, s.Status())
	assert.Equal(t, FiftyMoveRule, s.DrawReason())
}

func TestHalfmoveClockResets(t *testing.T) {
	s := NewGameState()
	_, err := s.ApplyUCI("g1f3")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Halfmove())
	_, err = s.ApplyUCI("e7e5")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Halfmove())
	assert.Equal(t, 2, s.Fullmove())
}

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range []string{StartFEN, kiwipete, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"} {
		s, err := NewGameStateFromFEN(fen)
		require.NoError(t, err)
		assert.Equal(t, fen, s.FEN())
	}
}

func TestFENRejectsBadPositions(t *testing.T) {
	_, err := NewGameStateFromFEN("8/8/8/8/8/8/8/4K3 w - - 0 1")
	assert.ErrorIs(t, err, ErrInvariant)
	_, err = NewGameStateFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1")
	assert.ErrorIs(t, err, ErrBadFEN)
	_, err = NewGameStateFromFEN("4k3/8/8/8/8/8/8/4K2R b - - 0 1")
	assert.NoError(t, err)
	_, err = NewGameStateFromFEN("4k2R/8/8/8/8/8/8/4K3 w - - 0 1")
	assert.ErrorIs(t, err, ErrInvariant, "black is in check with white to move")
}

func TestEncode(t *testing.T) {
	planes := Encode(NewGameState())
	total := float32(0)
	for _, v := range planes {
		total += v
	}
	assert.Equal(t, float32(32), total)
	whitePawns := planes[0:PlaneSize]
	for x := 0; x < 8; x++ {
		assert.Equal(t, float32(1), whitePawns[6*8+x])
	}
	blackKing := planes[11*PlaneSize : 12*PlaneSize]
	assert.Equal(t, float32(1), blackKing[0*8+4])
}

func TestSAN(t *testing.T) {
	s := NewGameState()
	moves := map[string]string{}
	for _, m := range s.LegalMoves(White) {
		moves[m.UCI()] = s.SAN(m)
	}
	assert.Equal(t, "e4", moves["e2e4"])
	assert.Equal(t, "Nf3", moves["g1f3"])

	s, err := NewGameStateFromFEN("4k3/8/8/8/8/8/8/R3K2R w KQ - 0 1")
	require.NoError(t, err)
	for _, m := range s.LegalMoves(White) {
		if m.UCI() == "e1g1" {
			assert.Equal(t, "O-O", s.SAN(m))
		}
	}

	s, err = NewGameStateFromFEN("4k3/8/8/8/8/8/8/R4RK1 w - - 0 1")
	require.NoError(t, err)
	for _, m := range s.LegalMoves(White) {
		switch m.UCI() {
		case "a1d1":
			assert.Equal(t, "Rad1", s.SAN(m))
		case "f1f8":
			assert.Equal(t, "Rf8+", s.SAN(m))
		}
	}
}
