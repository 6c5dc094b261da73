package model

var (
	rookDirs   = []Position{{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}}
	bishopDirs = []Position{{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1}}
	queenDirs  = append(append([]Position{}, rookDirs...), bishopDirs...)
	knightDirs = []Position{{X: 2, Y: 1}, {X: 2, Y: -1}, {X: -2, Y: 1}, {X: -2, Y: -1}, {X: 1, Y: 2}, {X: 1, Y: -2}, {X: -1, Y: 2}, {X: -1, Y: -2}}
	kingDirs   = queenDirs
)

var promotionTypes = [...]PieceType{Queen, Rook, Bishop, Knight}

type pseudoGenerator func(s *GameState, from Position, piece Piece, moves []Move) []Move

// generators is indexed by PieceType.
var generators [King + 1]pseudoGenerator

func init() {
	generators = [King + 1]pseudoGenerator{
		Pawn:   (*GameState).getPsuedoPawnMoves,
		Knight: (*GameState).getPsuedoKnightMoves,
		Bishop: (*GameState).getPsuedoBishopMoves,
		Rook:   (*GameState).getPsuedoRookMoves,
		Queen:  (*GameState).getPsuedoQueenMoves,
		King:   (*GameState).getPsuedoKingMoves,
	}
}

func pawnDirection(color Color) int {
	if color == White {
		return -1
	}
	return 1
}

func homeRow(color Color) int {
	if color == White {
		return 7
	}
	return 0
}

// isSquareAttacked reports whether any piece of attackingColor could move to
// position, ignoring whether that move would expose its own king.
func isSquareAttacked(board *Board, attackingColor Color, position Position) bool {
	for _, dir := range rookDirs {
		if slidingAttacker(board, attackingColor, position, dir) == Rook {
			return true
		}
	}
	for _, dir := range bishopDirs {
		if slidingAttacker(board, attackingColor, position, dir) == Bishop {
			return true
		}
	}
	for _, dir := range knightDirs {
		if hasPiece(board, position.add(dir), attackingColor, Knight) {
			return true
		}
	}
	for _, dir := range kingDirs {
		if hasPiece(board, position.add(dir), attackingColor, King) {
			return true
		}
	}
	// Pawns attack diagonally forward, so look one row behind the target
	// from the attacker's point of view.
	back := -pawnDirection(attackingColor)
	for _, dx := range []int{-1, 1} {
		if hasPiece(board, Position{X: position.X + dx, Y: position.Y + back}, attackingColor, Pawn) {
			return true
		}
	}
	return false
}

// slidingAttacker walks from position along dir and returns Rook or Bishop
// (matching the direction kind) when the first piece met is an attacking
// slider of that kind or a queen.
func slidingAttacker(board *Board, attackingColor Color, position Position, dir Position) PieceType {
	diagonal := dir.X != 0 && dir.Y != 0
	targetPos := position.add(dir)
	for boundaryCheck(targetPos) {
		p := board.at(targetPos)
		if !p.IsEmpty() {
			if p.Color != attackingColor {
				return NoPiece
			}
			switch {
			case p.Type == Queen, diagonal && p.Type == Bishop:
				if diagonal {
					return Bishop
				}
				return Rook
			case !diagonal && p.Type == Rook:
				return Rook
			}
			return NoPiece
		}
		targetPos = targetPos.add(dir)
	}
	return NoPiece
}

func hasPiece(board *Board, pos Position, color Color, pieceType PieceType) bool {
	if !boundaryCheck(pos) {
		return false
	}
	p := board.at(pos)
	return p.Type == pieceType && p.Color == color
}

// generateLegalMoves produces every legal move for color in the current
// position.
func (s *GameState) generateLegalMoves(color Color) []Move {
	pseudo := make([]Move, 0, 48)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			piece := s.board[y][x]
			if piece.IsEmpty() || piece.Color != color {
				continue
			}
			pseudo = generators[piece.Type](s, Position{X: x, Y: y}, piece, pseudo)
		}
	}
	return s.filterLegalMoves(color, pseudo)
}

// filterLegalMoves keeps the moves that do not leave color's king attacked.
// Filtering happens in place on the pseudo slice.
func (s *GameState) filterLegalMoves(color Color, pseudoMoves []Move) []Move {
	king := s.kingPosition(color)
	legalMoves := pseudoMoves[:0]
	for _, move := range pseudoMoves {
		board := s.board
		board.set(move.From, Piece{})
		board.set(move.To, move.Piece)
		if move.EnPassant {
			board.set(Position{X: move.To.X, Y: move.From.Y}, Piece{})
		}
		if rm, ok := move.RookMove(); ok {
			board.set(rm.To, board.at(rm.From))
			board.set(rm.From, Piece{})
		}
		kingAt := king
		if move.Piece.Type == King {
			kingAt = move.To
		}
		if !isSquareAttacked(&board, color.Opponent(), kingAt) {
			legalMoves = append(legalMoves, move)
		}
	}
	return legalMoves
}

func (s *GameState) newMove(from, to Position, piece Piece) Move {
	return Move{From: from, To: to, Piece: piece, Captured: s.board.at(to)}
}

func (s *GameState) getPsuedoPawnMoves(from Position, piece Piece, moves []Move) []Move {
	dir := pawnDirection(piece.Color)
	lastRow := homeRow(piece.Color.Opponent())
	startRow := homeRow(piece.Color) + dir
	appendPawnMove := func(m Move) {
		if m.To.Y == lastRow {
			for _, promo := range promotionTypes {
				m.Promotion = promo
				moves = append(moves, m)
			}
			return
		}
		moves = append(moves, m)
	}

	one := Position{X: from.X, Y: from.Y + dir}
	if boundaryCheck(one) && s.board.at(one).IsEmpty() {
		appendPawnMove(s.newMove(from, one, piece))
		two := Position{X: from.X, Y: from.Y + 2*dir}
		if from.Y == startRow && s.board.at(two).IsEmpty() {
			moves = append(moves, s.newMove(from, two, piece))
		}
	}
	for _, dx := range []int{-1, 1} {
		target := Position{X: from.X + dx, Y: from.Y + dir}
		if !boundaryCheck(target) {
			continue
		}
		occupant := s.board.at(target)
		if !occupant.IsEmpty() && occupant.Color != piece.Color {
			appendPawnMove(s.newMove(from, target, piece))
		} else if s.hasEnPassant && target == s.enPassant && occupant.IsEmpty() {
			captured := s.board.at(Position{X: target.X, Y: from.Y})
			if captured.Type == Pawn && captured.Color != piece.Color {
				moves = append(moves, Move{From: from, To: target, Piece: piece, Captured: captured, EnPassant: true})
			}
		}
	}
	return moves
}

func (s *GameState) getPsuedoKnightMoves(from Position, piece Piece, moves []Move) []Move {
	return s.stepMoves(from, piece, knightDirs, moves)
}

func (s *GameState) getPsuedoBishopMoves(from Position, piece Piece, moves []Move) []Move {
	return s.slideMoves(from, piece, bishopDirs, moves)
}

func (s *GameState) getPsuedoRookMoves(from Position, piece Piece, moves []Move) []Move {
	return s.slideMoves(from, piece, rookDirs, moves)
}

func (s *GameState) getPsuedoQueenMoves(from Position, piece Piece, moves []Move) []Move {
	return s.slideMoves(from, piece, queenDirs, moves)
}

func (s *GameState) getPsuedoKingMoves(from Position, piece Piece, moves []Move) []Move {
	moves = s.stepMoves(from, piece, kingDirs, moves)
	row := homeRow(piece.Color)
	if from != (Position{X: 4, Y: row}) {
		return moves
	}
	enemy := piece.Color.Opponent()
	if isSquareAttacked(&s.board, enemy, from) {
		return moves
	}
	rook := Piece{Type: Rook, Color: piece.Color}
	if s.castling.Has(piece.Color, Kingside) && s.board[row][7] == rook &&
		s.emptyAndSafe(row, enemy, []int{5, 6}, []int{5, 6}) {
		moves = append(moves, Move{From: from, To: Position{X: 6, Y: row}, Piece: piece, Castle: Kingside})
	}
	if s.castling.Has(piece.Color, Queenside) && s.board[row][0] == rook &&
		s.emptyAndSafe(row, enemy, []int{1, 2, 3}, []int{2, 3}) {
		moves = append(moves, Move{From: from, To: Position{X: 2, Y: row}, Piece: piece, Castle: Queenside})
	}
	return moves
}

// emptyAndSafe checks the castling path: the between squares must be empty
// and the squares the king crosses must not be attacked.
func (s *GameState) emptyAndSafe(row int, enemy Color, between []int, crossed []int) bool {
	for _, x := range between {
		if !s.board[row][x].IsEmpty() {
			return false
		}
	}
	for _, x := range crossed {
		if isSquareAttacked(&s.board, enemy, Position{X: x, Y: row}) {
			return false
		}
	}
	return true
}

func (s *GameState) stepMoves(from Position, piece Piece, dirs []Position, moves []Move) []Move {
	for _, dir := range dirs {
		targetPos := from.add(dir)
		if !boundaryCheck(targetPos) {
			continue
		}
		occupant := s.board.at(targetPos)
		if occupant.IsEmpty() || occupant.Color != piece.Color {
			moves = append(moves, s.newMove(from, targetPos, piece))
		}
	}
	return moves
}

func (s *GameState) slideMoves(from Position, piece Piece, dirs []Position, moves []Move) []Move {
	for _, dir := range dirs {
		targetPos := from.add(dir)
		for boundaryCheck(targetPos) {
			occupant := s.board.at(targetPos)
			if occupant.IsEmpty() {
				moves = append(moves, s.newMove(from, targetPos, piece))
			} else {
				if occupant.Color != piece.Color {
					moves = append(moves, s.newMove(from, targetPos, piece))
				}
				break
			}
			targetPos = targetPos.add(dir)
		}
	}
	return moves
}

// GivesCheck reports whether m, a legal move for the side to move, attacks
// the opposing king. It works on a board copy and skips classification, so
// it is much cheaper than applying the move.
func (s *GameState) GivesCheck(m Move) bool {
	board := s.board
	placed := m.Piece
	if m.Promotion != NoPiece {
		placed.Type = m.Promotion
	}
	board.set(m.From, Piece{})
	board.set(m.To, placed)
	if m.EnPassant {
		board.set(Position{X: m.To.X, Y: m.From.Y}, Piece{})
	}
	if rm, ok := m.RookMove(); ok {
		board.set(rm.To, board.at(rm.From))
		board.set(rm.From, Piece{})
	}
	enemy := m.Piece.Color.Opponent()
	return isSquareAttacked(&board, m.Piece.Color, s.kingPosition(enemy))
}
