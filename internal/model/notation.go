package model

import "fmt"

// SAN returns the standard algebraic notation of m, which must be legal in
// the current position.
func (s *GameState) SAN(m Move) string {
	var notation string
	switch m.Castle {
	case Kingside:
		notation = "O-O"
	case Queenside:
		notation = "O-O-O"
	default:
		notation = s.getNotation(m)
	}

	next := s.Clone()
	if next.ApplyMove(m) {
		switch next.Status() {
		case Checkmate:
			notation += "#"
		case Check:
			notation += "+"
		}
	}
	return notation
}

func (s *GameState) getNotation(m Move) string {
	pieceNotationPrefix := m.Piece.Type.getPieceNotation()
	pieceNotationCapture := ""
	if m.IsCapture() {
		pieceNotationCapture = "x"
	}
	disambiguation := ""
	if m.Piece.Type == Pawn {
		if m.From.X != m.To.X {
			disambiguation = m.From.getFileNotation()
		}
	} else {
		disambiguation = s.disambiguate(m)
	}
	promotion := ""
	if m.Promotion != NoPiece {
		promotion = "=" + m.Promotion.getPieceNotation()
	}
	return fmt.Sprintf("%s%s%s%s%s", pieceNotationPrefix, disambiguation, pieceNotationCapture, m.To, promotion)
}

func (s *GameState) disambiguate(m Move) string {
	sameFile, sameRank, others := false, false, false
	for _, other := range s.legal {
		if other.To != m.To || other.From == m.From || other.Piece != m.Piece {
			continue
		}
		others = true
		if other.From.X == m.From.X {
			sameFile = true
		}
		if other.From.Y == m.From.Y {
			sameRank = true
		}
	}
	switch {
	case !others:
		return ""
	case !sameFile:
		return m.From.getFileNotation()
	case !sameRank:
		return m.From.getRankNotation()
	}
	return m.From.String()
}
