package model

import (
	"fmt"

	"github.com/cespare/xxhash"
)

type GameStatus uint8

const (
	Playing GameStatus = iota
	Check
	Checkmate
	Stalemate
	Draw
)

var statusNames = [...]string{"playing", "check", "checkmate", "stalemate", "draw"}

func (g GameStatus) String() string {
	if int(g) < len(statusNames) {
		return statusNames[g]
	}
	return fmt.Sprintf("GameStatus(%d)", g)
}

func (g GameStatus) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g GameStatus) IsTerminal() bool {
	return g == Checkmate || g == Stalemate || g == Draw
}

type DrawReason uint8

const (
	NoDraw DrawReason = iota
	FiftyMoveRule
	ThreefoldRepetition
	InsufficientMaterial
)

var drawReasonNames = [...]string{"", "fifty-move rule", "threefold repetition", "insufficient material"}

func (d DrawReason) String() string {
	if int(d) < len(drawReasonNames) {
		return drawReasonNames[d]
	}
	return fmt.Sprintf("DrawReason(%d)", d)
}

func (d DrawReason) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// fiftyMovePlies is the halfmove clock value at which the game is drawn:
// fifty moves by each side without a pawn move or capture.
const fiftyMovePlies = 100

// classify derives the status of the side to move and refreshes the legal
// move cache. The order of the checks matters: mate and stalemate take
// precedence over the draw rules.
func (s *GameState) classify() {
	s.legal = s.generateLegalMoves(s.toMove)
	inCheck := s.InCheck(s.toMove)
	s.drawReason = NoDraw
	switch {
	case len(s.legal) == 0 && inCheck:
		s.status = Checkmate
	case len(s.legal) == 0:
		s.status = Stalemate
	case s.halfmove >= fiftyMovePlies:
		s.status, s.drawReason = Draw, FiftyMoveRule
	case s.RepetitionCount() >= 3:
		s.status, s.drawReason = Draw, ThreefoldRepetition
	case s.insufficientMaterial():
		s.status, s.drawReason = Draw, InsufficientMaterial
	case inCheck:
		s.status = Check
	default:
		s.status = Playing
	}
}

// Outcome is white's score for a finished game: 1 for a white win, 0 for a
// black win, 0.5 for any draw. ok is false while the game is still going.
func (s *GameState) Outcome() (score float64, ok bool) {
	switch s.status {
	case Checkmate:
		if s.toMove == White {
			return 0, true
		}
		return 1, true
	case Stalemate, Draw:
		return 0.5, true
	}
	return 0, false
}

// Winner returns the side that delivered mate.
func (s *GameState) Winner() (Color, bool) {
	if s.status != Checkmate {
		return White, false
	}
	return s.toMove.Opponent(), true
}

// RepetitionCount is how many times the current position has occurred.
// Only positions since the last pawn move or capture can repeat, and only
// those with the same side to move, so the scan steps back two plies at a
// time within the halfmove clock.
func (s *GameState) RepetitionCount() int {
	n := len(s.signatures)
	current := s.signatures[n-1]
	count := 0
	for i := n - 1; i >= 0 && i >= n-1-s.halfmove; i -= 2 {
		if s.signatures[i] == current {
			count++
		}
	}
	return count
}

func (s *GameState) insufficientMaterial() bool {
	var minors []Position
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			switch s.board[y][x].Type {
			case NoPiece, King:
			case Knight, Bishop:
				minors = append(minors, Position{X: x, Y: y})
			default:
				return false
			}
		}
	}
	switch len(minors) {
	case 0, 1:
		return true
	case 2:
		a, b := s.board.at(minors[0]), s.board.at(minors[1])
		return a.Type == Bishop && b.Type == Bishop && a.Color != b.Color &&
			minors[0].isLight() == minors[1].isLight()
	}
	return false
}

// signature hashes the parts of the position that decide repetition: piece
// placement, side to move, castling rights, and the en passant square when
// a capture onto it is actually available.
func (s *GameState) signature() uint64 {
	var buf [67]byte
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := s.board[y][x]
			buf[y*8+x] = byte(p.Type) | byte(p.Color)<<3
		}
	}
	buf[64] = byte(s.toMove)
	buf[65] = s.castling.bits()
	buf[66] = 0xff
	if s.enPassantCapturable() {
		buf[66] = byte(s.enPassant.Y*8 + s.enPassant.X)
	}
	return xxhash.Sum64(buf[:])
}

func (s *GameState) enPassantCapturable() bool {
	if !s.hasEnPassant {
		return false
	}
	back := -pawnDirection(s.toMove)
	for _, dx := range []int{-1, 1} {
		if hasPiece(&s.board, Position{X: s.enPassant.X + dx, Y: s.enPassant.Y + back}, s.toMove, Pawn) {
			return true
		}
	}
	return false
}
