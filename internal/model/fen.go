package model

import (
	"fmt"
	"strconv"
	"strings"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// FEN renders the position in Forsyth-Edwards notation.
func (s *GameState) FEN() string {
	ep := "-"
	if s.hasEnPassant {
		ep = s.enPassant.String()
	}
	return fmt.Sprintf("%s %c %s %s %d %d", s.placement(), s.toMove.String()[0],
		s.castling.fen(), ep, s.halfmove, s.fullmove)
}

func (s *GameState) placement() string {
	var sb strings.Builder
	for y := 0; y < 8; y++ {
		empty := 0
		for x := 0; x < 8; x++ {
			p := s.board[y][x]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteRune(p.fenRune())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if y < 7 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// NewGameStateFromFEN loads a position. The halfmove and fullmove fields may
// be omitted. Positions without exactly one king per side, or where the
// side not on move is in check, are rejected.
func NewGameStateFromFEN(fen string) (*GameState, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return nil, fmt.Errorf("%w: want 4 to 6 fields, got %d", ErrBadFEN, len(fields))
	}
	s := &GameState{fullmove: 1, captured: newCapturedPieces()}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("%w: want 8 ranks, got %d", ErrBadFEN, len(ranks))
	}
	kings := [2]int{}
	for y, rank := range ranks {
		x := 0
		for _, r := range rank {
			if r >= '1' && r <= '8' {
				x += int(r - '0')
				continue
			}
			p, ok := pieceFromFEN(r)
			if !ok || x > 7 {
				return nil, fmt.Errorf("%w: bad rank %q", ErrBadFEN, rank)
			}
			if p.Type == Pawn && (y == 0 || y == 7) {
				return nil, fmt.Errorf("%w: pawn on back rank", ErrBadFEN)
			}
			if p.Type == King {
				kings[p.Color]++
				s.kings[p.Color] = Position{X: x, Y: y}
			}
			s.board[y][x] = p
			x++
		}
		if x != 8 {
			return nil, fmt.Errorf("%w: rank %q has %d files", ErrBadFEN, rank, x)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return nil, fmt.Errorf("%w: need one king per side", ErrInvariant)
	}

	color, err := ParseColor(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFEN, err)
	}
	s.toMove = color

	if fields[2] != "-" {
		for _, r := range fields[2] {
			switch r {
			case 'K':
				s.castling.WhiteKingside = true
			case 'Q':
				s.castling.WhiteQueenside = true
			case 'k':
				s.castling.BlackKingside = true
			case 'q':
				s.castling.BlackQueenside = true
			default:
				return nil, fmt.Errorf("%w: bad castling field %q", ErrBadFEN, fields[2])
			}
		}
	}

	if fields[3] != "-" {
		ep, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFEN, err)
		}
		s.enPassant, s.hasEnPassant = ep, true
	}
	if len(fields) > 4 {
		if s.halfmove, err = strconv.Atoi(fields[4]); err != nil || s.halfmove < 0 {
			return nil, fmt.Errorf("%w: bad halfmove clock %q", ErrBadFEN, fields[4])
		}
	}
	if len(fields) > 5 {
		if s.fullmove, err = strconv.Atoi(fields[5]); err != nil || s.fullmove < 1 {
			return nil, fmt.Errorf("%w: bad fullmove number %q", ErrBadFEN, fields[5])
		}
	}
	if s.InCheck(s.toMove.Opponent()) {
		return nil, fmt.Errorf("%w: side not on move is in check", ErrInvariant)
	}

	s.signatures = append(s.signatures, s.signature())
	s.classify()
	return s, nil
}
