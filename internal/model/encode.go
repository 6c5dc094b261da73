package model

const (
	PlaneCount = 12
	PlaneSize  = 64
	EncodedLen = PlaneCount * PlaneSize
)

// Planes is the evaluator input: twelve 8x8 binary planes, one per (color,
// piece type), white pawn through king then black pawn through king. Within a
// plane, cells run row by row from row 0 (rank 8).
type Planes [EncodedLen]float32

func planeIndex(p Piece) int {
	return int(p.Color)*6 + int(p.Type) - 1
}

// Encode writes the piece placement of s as planes.
func Encode(s *GameState) Planes {
	var planes Planes
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := s.board[y][x]
			if p.IsEmpty() {
				continue
			}
			planes[planeIndex(p)*PlaneSize+y*8+x] = 1
		}
	}
	return planes
}
