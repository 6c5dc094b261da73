package model

import (
	"fmt"
	"slices"
)

type CapturedPieces struct {
	White []Piece `json:"white"`
	Black []Piece `json:"black"`
}

func (c *CapturedPieces) of(color Color) *[]Piece {
	if color == White {
		return &c.White
	}
	return &c.Black
}

// undoRecord snapshots everything ApplyMove changes besides the board, so
// UndoMove is exact.
type undoRecord struct {
	castling     CastlingRights
	enPassant    Position
	hasEnPassant bool
	halfmove     int
	fullmove     int
	kings        [2]Position
	status       GameStatus
	drawReason   DrawReason
	legal        []Move
}

// GameState is a full chess position plus the history needed for undo and
// repetition detection. It is mutated only through ApplyMove and UndoMove.
type GameState struct {
	board        Board
	toMove       Color
	castling     CastlingRights
	enPassant    Position
	hasEnPassant bool
	halfmove     int
	fullmove     int
	kings        [2]Position

	log      []Move
	undo     []undoRecord
	captured CapturedPieces
	// signatures holds one entry per position reached, the last being the
	// current position.
	signatures []uint64

	status     GameStatus
	drawReason DrawReason
	// legal caches the legal moves of the side to move. The slice is never
	// modified in place, so clones share it.
	legal []Move
}

func NewGameState() *GameState {
	s := &GameState{
		board:    newBoard(),
		toMove:   White,
		castling: allCastlingRights(),
		fullmove: 1,
		captured: newCapturedPieces(),
	}
	s.kings[White] = Position{X: 4, Y: 7}
	s.kings[Black] = Position{X: 4, Y: 0}
	s.signatures = append(s.signatures, s.signature())
	s.classify()
	return s
}

func newCapturedPieces() CapturedPieces {
	return CapturedPieces{
		White: make([]Piece, 0),
		Black: make([]Piece, 0),
	}
}

// Clone returns an independent copy.
func (s *GameState) Clone() *GameState {
	c := *s
	c.log = slices.Clone(s.log)
	c.undo = slices.Clone(s.undo)
	c.signatures = slices.Clone(s.signatures)
	c.captured = CapturedPieces{
		White: slices.Clone(s.captured.White),
		Black: slices.Clone(s.captured.Black),
	}
	return &c
}

func (s *GameState) Board() Board                  { return s.board }
func (s *GameState) ToMove() Color                 { return s.toMove }
func (s *GameState) Castling() CastlingRights      { return s.castling }
func (s *GameState) Halfmove() int                 { return s.halfmove }
func (s *GameState) Fullmove() int                 { return s.fullmove }
func (s *GameState) Status() GameStatus            { return s.status }
func (s *GameState) DrawReason() DrawReason        { return s.drawReason }
func (s *GameState) Plies() int                    { return len(s.log) }
func (s *GameState) Log() []Move                   { return slices.Clone(s.log) }
func (s *GameState) IsOver() bool                  { return s.status.IsTerminal() }
func (s *GameState) EnPassant() (Position, bool)   { return s.enPassant, s.hasEnPassant }
func (s *GameState) PieceAt(p Position) Piece      { return s.board.at(p) }
func (s *GameState) KingPosition(c Color) Position { return s.kingPosition(c) }

func (s *GameState) Captured() CapturedPieces {
	return CapturedPieces{
		White: slices.Clone(s.captured.White),
		Black: slices.Clone(s.captured.Black),
	}
}

// LastMove returns the most recent move, if any.
func (s *GameState) LastMove() (Move, bool) {
	if len(s.log) == 0 {
		return Move{}, false
	}
	return s.log[len(s.log)-1], true
}

func (s *GameState) kingPosition(color Color) Position {
	pos := s.kings[color]
	if p := s.board.at(pos); p.Type != King || p.Color != color {
		panic(fmt.Errorf("%w: %s king missing from %s", ErrInvariant, color, pos))
	}
	return pos
}

// LegalMoves returns every legal move for color. Promotions appear once per
// promotion piece.
func (s *GameState) LegalMoves(color Color) []Move {
	if color == s.toMove {
		return slices.Clone(s.legal)
	}
	return s.generateLegalMoves(color)
}

// LegalMovesFrom returns the destinations reachable by the piece on from.
// It is empty when the square is empty or the piece is not on move.
func (s *GameState) LegalMovesFrom(from Position) []Position {
	if !boundaryCheck(from) {
		return nil
	}
	var dests []Position
	for _, m := range s.legal {
		if m.From == from && !slices.Contains(dests, m.To) {
			dests = append(dests, m.To)
		}
	}
	return dests
}

func (s *GameState) InCheck(color Color) bool {
	return isSquareAttacked(&s.board, color.Opponent(), s.kingPosition(color))
}

// IsAttacked reports whether byColor attacks pos.
func (s *GameState) IsAttacked(pos Position, byColor Color) bool {
	return isSquareAttacked(&s.board, byColor, pos)
}

// Material sums piece values for color.
func (s *GameState) Material(color Color) int {
	total := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if p := s.board[y][x]; p.Color == color {
				total += p.Type.Value()
			}
		}
	}
	return total
}

// findLegal matches a candidate against the legal list by squares and
// promotion type. A missing promotion choice defaults to queen.
func (s *GameState) findLegal(from, to Position, promotion PieceType) (Move, bool) {
	for _, m := range s.legal {
		if m.From != from || m.To != to {
			continue
		}
		if m.Promotion == NoPiece {
			// A promotion suffix on a non-promoting move is not a match.
			if promotion == NoPiece {
				return m, true
			}
			continue
		}
		if m.Promotion == promotion || (promotion == NoPiece && m.Promotion == Queen) {
			return m, true
		}
	}
	return Move{}, false
}

// Apply plays the move from -> to, returning the full Move record. It fails,
// leaving the state untouched, when the move is illegal or the game is over.
func (s *GameState) Apply(from, to Position, promotion PieceType) (Move, bool) {
	if s.status.IsTerminal() {
		return Move{}, false
	}
	m, ok := s.findLegal(from, to, promotion)
	if !ok {
		return Move{}, false
	}
	s.commit(m)
	return m, true
}

// ApplyMove plays m, matched against the legal moves by squares and
// promotion. It returns false and leaves the state unchanged otherwise.
func (s *GameState) ApplyMove(m Move) bool {
	_, ok := s.Apply(m.From, m.To, m.Promotion)
	return ok
}

// ApplyUCI plays a long algebraic move such as "e7e8q".
func (s *GameState) ApplyUCI(text string) (Move, error) {
	from, to, promo, err := ParseUCI(text)
	if err != nil {
		return Move{}, err
	}
	m, ok := s.Apply(from, to, promo)
	if !ok {
		return Move{}, fmt.Errorf("illegal move %s", text)
	}
	return m, nil
}

func (s *GameState) commit(m Move) {
	mover := s.toMove
	s.undo = append(s.undo, undoRecord{
		castling:     s.castling,
		enPassant:    s.enPassant,
		hasEnPassant: s.hasEnPassant,
		halfmove:     s.halfmove,
		fullmove:     s.fullmove,
		kings:        s.kings,
		status:       s.status,
		drawReason:   s.drawReason,
		legal:        s.legal,
	})

	placed := m.Piece
	if m.Promotion != NoPiece {
		placed.Type = m.Promotion
	}
	s.board.set(m.From, Piece{})
	s.board.set(m.To, placed)
	if m.EnPassant {
		s.board.set(Position{X: m.To.X, Y: m.From.Y}, Piece{})
	}
	if rm, ok := m.RookMove(); ok {
		s.board.set(rm.To, s.board.at(rm.From))
		s.board.set(rm.From, Piece{})
	}
	if m.IsCapture() {
		list := s.captured.of(mover)
		*list = append(*list, m.Captured)
	}

	if m.Piece.Type == King {
		s.kings[mover] = m.To
		s.castling.clearColor(mover)
	}
	s.castling.clearSquare(m.From)
	s.castling.clearSquare(m.To)

	s.hasEnPassant = false
	if m.Piece.Type == Pawn && abs(m.To.Y-m.From.Y) == 2 {
		s.enPassant = Position{X: m.From.X, Y: (m.From.Y + m.To.Y) / 2}
		s.hasEnPassant = true
	}
	if m.Piece.Type == Pawn || m.IsCapture() {
		s.halfmove = 0
	} else {
		s.halfmove++
	}
	if mover == Black {
		s.fullmove++
	}

	s.log = append(s.log, m)
	s.toMove = mover.Opponent()
	s.signatures = append(s.signatures, s.signature())
	s.classify()
}

// UndoMove takes back the last move. It returns false when there is nothing
// to undo.
func (s *GameState) UndoMove() bool {
	n := len(s.log)
	if n == 0 {
		return false
	}
	m := s.log[n-1]
	rec := s.undo[n-1]
	mover := s.toMove.Opponent()

	if rm, ok := m.RookMove(); ok {
		s.board.set(rm.From, s.board.at(rm.To))
		s.board.set(rm.To, Piece{})
	}
	s.board.set(m.From, m.Piece)
	if m.EnPassant {
		s.board.set(m.To, Piece{})
		s.board.set(Position{X: m.To.X, Y: m.From.Y}, m.Captured)
	} else {
		s.board.set(m.To, m.Captured)
	}
	if m.IsCapture() {
		list := s.captured.of(mover)
		*list = (*list)[:len(*list)-1]
	}

	s.toMove = mover
	s.castling = rec.castling
	s.enPassant = rec.enPassant
	s.hasEnPassant = rec.hasEnPassant
	s.halfmove = rec.halfmove
	s.fullmove = rec.fullmove
	s.kings = rec.kings
	s.status = rec.status
	s.drawReason = rec.drawReason
	s.legal = rec.legal

	s.log = s.log[:n-1]
	s.undo = s.undo[:n-1]
	s.signatures = s.signatures[:len(s.signatures)-1]
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
