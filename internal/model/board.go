package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Position addresses a square. X is the file (0 = a), Y is the row where
// row 0 is rank 8, black's back rank.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("%c%d", p.X+'a', 8-p.Y)
}

func (p Position) getFileNotation() string {
	return string(rune(p.X + 'a'))
}

func (p Position) getRankNotation() string {
	return fmt.Sprintf("%d", 8-p.Y)
}

func (p Position) add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p Position) isLight() bool {
	return (p.X+p.Y)%2 == 0
}

// ParseSquare parses algebraic square names such as "e4".
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Position{}, fmt.Errorf("bad square %q", s)
	}
	return Position{X: int(s[0] - 'a'), Y: 8 - int(s[1]-'0')}, nil
}

func boundaryCheck(position Position) bool {
	return position.X >= 0 && position.X < 8 && position.Y >= 0 && position.Y < 8
}

// Board is the 8x8 grid indexed [y][x]. Being an array, assignment copies it.
type Board [8][8]Piece

func (b *Board) at(p Position) Piece {
	return b[p.Y][p.X]
}

func (b *Board) set(p Position, piece Piece) {
	b[p.Y][p.X] = piece
}

// At returns the piece on p, or the empty Piece.
func (b Board) At(p Position) Piece {
	return b[p.Y][p.X]
}

func (b *Board) findKing(color Color) (Position, bool) {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if b[y][x].Type == King && b[y][x].Color == color {
				return Position{X: x, Y: y}, true
			}
		}
	}
	return Position{}, false
}

// MarshalJSON renders empty squares as null, as the frontend expects.
func (b Board) MarshalJSON() ([]byte, error) {
	rows := make([][]*Piece, 8)
	for y := 0; y < 8; y++ {
		rows[y] = make([]*Piece, 8)
		for x := 0; x < 8; x++ {
			if !b[y][x].IsEmpty() {
				p := b[y][x]
				rows[y][x] = &p
			}
		}
	}
	return json.Marshal(rows)
}

// String draws the board from white's side, one rank per line.
func (b Board) String() string {
	var sb strings.Builder
	for y := 0; y < 8; y++ {
		fmt.Fprintf(&sb, "%d ", 8-y)
		for x := 0; x < 8; x++ {
			if b[y][x].IsEmpty() {
				sb.WriteString(". ")
				continue
			}
			sb.WriteRune(b[y][x].fenRune())
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

func newBoard() Board {
	var board Board
	for x := 0; x < 8; x++ {
		board[0][x] = Piece{Type: backRank[x], Color: Black}
		board[1][x] = Piece{Type: Pawn, Color: Black}
		board[6][x] = Piece{Type: Pawn, Color: White}
		board[7][x] = Piece{Type: backRank[x], Color: White}
	}
	return board
}
