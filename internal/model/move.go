package model

import (
	"fmt"
	"strings"
)

type CastleSide uint8

const (
	NoCastle CastleSide = iota
	Kingside
	Queenside
)

// Move records what happened on one ply, enough to apply and to undo it.
type Move struct {
	From      Position   `json:"from"`
	To        Position   `json:"to"`
	Piece     Piece      `json:"piece"`
	Captured  Piece      `json:"capturedPiece"`
	Castle    CastleSide `json:"castle,omitempty"`
	EnPassant bool       `json:"enPassant,omitempty"`
	Promotion PieceType  `json:"promotion,omitempty"`
}

type CastleRookMove struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

// RookMove reports the rook relocation of a castling move.
func (m Move) RookMove() (CastleRookMove, bool) {
	switch m.Castle {
	case Kingside:
		return CastleRookMove{From: Position{X: 7, Y: m.From.Y}, To: Position{X: 5, Y: m.From.Y}}, true
	case Queenside:
		return CastleRookMove{From: Position{X: 0, Y: m.From.Y}, To: Position{X: 3, Y: m.From.Y}}, true
	}
	return CastleRookMove{}, false
}

func (m Move) IsCapture() bool {
	return !m.Captured.IsEmpty()
}

// UCI returns the long algebraic form, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPiece {
		s += strings.ToLower(m.Promotion.getPieceNotation())
	}
	return s
}

func (m Move) String() string {
	return m.UCI()
}

// ParseUCI splits a long algebraic move into its squares and promotion type.
func ParseUCI(s string) (from, to Position, promotion PieceType, err error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 && len(s) != 5 {
		return from, to, NoPiece, fmt.Errorf("bad move %q", s)
	}
	if from, err = ParseSquare(s[0:2]); err != nil {
		return
	}
	if to, err = ParseSquare(s[2:4]); err != nil {
		return
	}
	if len(s) == 5 {
		promotion, err = ParsePieceType(s[4:5])
		if err == nil && (promotion == Pawn || promotion == King) {
			err = fmt.Errorf("bad promotion in %q", s)
		}
	}
	return
}

// CastlingRights are cleared, never granted, as the game goes on.
type CastlingRights struct {
	WhiteKingside  bool `json:"whiteKingside"`
	WhiteQueenside bool `json:"whiteQueenside"`
	BlackKingside  bool `json:"blackKingside"`
	BlackQueenside bool `json:"blackQueenside"`
}

func allCastlingRights() CastlingRights {
	return CastlingRights{true, true, true, true}
}

func (c CastlingRights) Has(color Color, side CastleSide) bool {
	switch {
	case color == White && side == Kingside:
		return c.WhiteKingside
	case color == White && side == Queenside:
		return c.WhiteQueenside
	case color == Black && side == Kingside:
		return c.BlackKingside
	case color == Black && side == Queenside:
		return c.BlackQueenside
	}
	return false
}

func (c *CastlingRights) clearColor(color Color) {
	if color == White {
		c.WhiteKingside, c.WhiteQueenside = false, false
	} else {
		c.BlackKingside, c.BlackQueenside = false, false
	}
}

// clearSquare drops the right tied to a rook home square, if p is one. It is
// called with both ends of every move, so a rook leaving home and a rook
// captured at home are both covered.
func (c *CastlingRights) clearSquare(p Position) {
	switch p {
	case Position{X: 0, Y: 7}:
		c.WhiteQueenside = false
	case Position{X: 7, Y: 7}:
		c.WhiteKingside = false
	case Position{X: 0, Y: 0}:
		c.BlackQueenside = false
	case Position{X: 7, Y: 0}:
		c.BlackKingside = false
	}
}

func (c CastlingRights) fen() string {
	var sb strings.Builder
	if c.WhiteKingside {
		sb.WriteByte('K')
	}
	if c.WhiteQueenside {
		sb.WriteByte('Q')
	}
	if c.BlackKingside {
		sb.WriteByte('k')
	}
	if c.BlackQueenside {
		sb.WriteByte('q')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

func (c CastlingRights) bits() byte {
	var b byte
	for i, set := range []bool{c.WhiteKingside, c.WhiteQueenside, c.BlackKingside, c.BlackQueenside} {
		if set {
			b |= 1 << i
		}
	}
	return b
}
