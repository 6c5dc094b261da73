package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func perft(t *testing.T, s *GameState, depth int) int {
	moves := s.LegalMoves(s.ToMove())
	if depth == 1 {
		return len(moves)
	}
	nodes := 0
	for _, m := range moves {
		require.True(t, s.ApplyMove(m), "apply %s", m)
		nodes += perft(t, s, depth-1)
		require.True(t, s.UndoMove())
	}
	return nodes
}

func TestPerftStartPosition(t *testing.T) {
	s := NewGameState()
	assert.Equal(t, 20, perft(t, s, 1))
	assert.Equal(t, 400, perft(t, s, 2))
	assert.Equal(t, 8902, perft(t, s, 3))
	assert.Equal(t, StartFEN, s.FEN())
}

func TestPerftKiwipete(t *testing.T) {
	s, err := NewGameStateFromFEN(kiwipete)
	require.NoError(t, err)
	assert.Equal(t, 48, perft(t, s, 1))
	assert.Equal(t, 2039, perft(t, s, 2))
}

func TestPerftEnPassantEndgame(t *testing.T) {
	s, err := NewGameStateFromFEN("8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, 14, perft(t, s, 1))
	assert.Equal(t, 191, perft(t, s, 2))
	assert.Equal(t, 2812, perft(t, s, 3))
}

func TestLegalMovesFrom(t *testing.T) {
	s := NewGameState()
	dests := s.LegalMovesFrom(Position{X: 6, Y: 7}) // g1
	assert.ElementsMatch(t, []Position{{X: 5, Y: 5}, {X: 7, Y: 5}}, dests)
	assert.Empty(t, s.LegalMovesFrom(Position{X: 4, Y: 1}), "black pawn is not on move")
	assert.Empty(t, s.LegalMovesFrom(Position{X: 4, Y: 4}), "empty square")
}

func TestCastling(t *testing.T) {
	s, err := NewGameStateFromFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	before := s.FEN()

	m, err := s.ApplyUCI("e1g1")
	require.NoError(t, err)
	assert.Equal(t, Kingside, m.Castle)
	assert.Equal(t, Piece{Type: Rook, Color: White}, s.PieceAt(Position{X: 5, Y: 7}))
	assert.True(t, s.PieceAt(Position{X: 7, Y: 7}).IsEmpty())
	assert.False(t, s.Castling().WhiteKingside)
	assert.False(t, s.Castling().WhiteQueenside)
	assert.True(t, s.Castling().BlackQueenside)

	require.True(t, s.UndoMove())
	assert.Equal(t, before, s.FEN())
}

func TestCastlingThroughAttackedSquare(t *testing.T) {
	// The black rook on f2 covers f1.
	s, err := NewGameStateFromFEN("r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	_, err = s.ApplyUCI("e1g1")
	assert.Error(t, err)
	_, err = s.ApplyUCI("e1c1")
	assert.NoError(t, err)
}

func TestCastlingOutOfCheck(t *testing.T) {
	s, err := NewGameStateFromFEN("4k3/4r3/8/8/8/8/8/R3K2R w KQ - 0 1")
	require.NoError(t, err)
	assert.Equal(t, Check, s.Status())
	for _, m := range s.LegalMoves(White) {
		assert.Equal(t, NoCastle, m.Castle)
	}
}

func TestRookCaptureClearsCastlingRight(t *testing.T) {
	s, err := NewGameStateFromFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	_, err = s.ApplyUCI("a1a8")
	require.NoError(t, err)
	c := s.Castling()
	assert.False(t, c.WhiteQueenside, "rook left its home square")
	assert.False(t, c.BlackQueenside, "rook captured on its home square")
	assert.True(t, c.WhiteKingside)
	assert.True(t, c.BlackKingside)
}

func TestEnPassant(t *testing.T) {
	s := NewGameState()
	for _, uci := range []string{"e2e4", "a7a6", "e4e5", "d7d5"} {
		_, err := s.ApplyUCI(uci)
		require.NoError(t, err, uci)
	}
	ep, ok := s.EnPassant()
	require.True(t, ok)
	assert.Equal(t, "d6", ep.String())

	m, err := s.ApplyUCI("e5d6")
	require.NoError(t, err)
	assert.True(t, m.EnPassant)
	assert.Equal(t, Piece{Type: Pawn, Color: Black}, m.Captured)
	assert.True(t, s.PieceAt(Position{X: 3, Y: 3}).IsEmpty(), "d5 pawn removed")
	assert.Equal(t, []Piece{{Type: Pawn, Color: Black}}, s.Captured().White)
	_, ok = s.EnPassant()
	assert.False(t, ok)

	require.True(t, s.UndoMove())
	assert.Equal(t, Piece{Type: Pawn, Color: Black}, s.PieceAt(Position{X: 3, Y: 3}))
	assert.True(t, s.PieceAt(Position{X: 3, Y: 2}).IsEmpty())
	ep, ok = s.EnPassant()
	assert.True(t, ok)
	assert.Equal(t, "d6", ep.String())
}

func TestEnPassantExpires(t *testing.T) {
	s := NewGameState()
	for _, uci := range []string{"e2e4", "a7a6", "e4e5", "d7d5", "h2h3", "a6a5"} {
		_, err := s.ApplyUCI(uci)
		require.NoError(t, err, uci)
	}
	_, err := s.ApplyUCI("e5d6")
	assert.Error(t, err)
}

func TestPromotion(t *testing.T) {
	s, err := NewGameStateFromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	require.NoError(t, err)
	a7, a8 := Position{X: 0, Y: 1}, Position{X: 0, Y: 0}

	m, ok := s.Apply(a7, a8, Rook)
	require.True(t, ok)
	assert.Equal(t, Rook, m.Promotion)
	assert.Equal(t, Piece{Type: Rook, Color: White}, s.PieceAt(a8))

	require.True(t, s.UndoMove())
	assert.Equal(t, Piece{Type: Pawn, Color: White}, s.PieceAt(a7))
	assert.True(t, s.PieceAt(a8).IsEmpty())

	_, ok = s.Apply(a7, a8, NoPiece)
	require.True(t, ok)
	assert.Equal(t, Queen, s.PieceAt(a8).Type, "promotion defaults to queen")
}

func TestIllegalMoveLeavesStateUnchanged(t *testing.T) {
	s := NewGameState()
	before := s.FEN()
	_, ok := s.Apply(Position{X: 4, Y: 6}, Position{X: 4, Y: 3}, NoPiece) // e2e5
	assert.False(t, ok)
	assert.False(t, s.ApplyMove(Move{From: Position{X: 4, Y: 1}, To: Position{X: 4, Y: 3}}))
	assert.Equal(t, before, s.FEN())
	assert.Zero(t, s.Plies())
}

func TestPinnedPieceCannotMove(t *testing.T) {
	s, err := NewGameStateFromFEN("4k3/4r3/8/8/8/8/4N3/4K3 w - - 0 1")
	require.NoError(t, err)
	assert.Empty(t, s.LegalMovesFrom(Position{X: 4, Y: 6}))
}

func TestGivesCheck(t *testing.T) {
	s, err := NewGameStateFromFEN("4k3/8/8/8/8/8/8/R3K2R w KQ - 0 1")
	require.NoError(t, err)
	for _, m := range s.LegalMoves(White) {
		next := s.Clone()
		require.True(t, next.ApplyMove(m))
		assert.Equal(t, next.Status() == Check, s.GivesCheck(m), m.UCI())
	}
}
