package models

// Cell is the content of one board intersection
type Cell int

const (
	Empty Cell = iota
	BlackStone
	WhiteStone
)

// DefaultBoardSize is the standard Gomoku board
const DefaultBoardSize = 15

// Board is a square grid indexed as Board[x][y]
type Board [][]Cell

// NewBoard creates an empty size×size board
func NewBoard(size int) Board {
	if size <= 0 {
		size = DefaultBoardSize
	}
	b := make(Board, size)
	for i := range b {
		b[i] = make([]Cell, size)
	}
	return b
}

// Size returns the board dimension
func (b Board) Size() int {
	return len(b)
}

// At returns the cell at p. Out-of-bounds positions read as Empty.
func (b Board) At(p Position) Cell {
	if !p.InBounds(b.Size()) {
		return Empty
	}
	return b[p.X][p.Y]
}

// Set writes c at p
func (b Board) Set(p Position, c Cell) {
	b[p.X][p.Y] = c
}

// Full reports whether no empty cell remains
func (b Board) Full() bool {
	for _, row := range b {
		for _, cell := range row {
			if cell == Empty {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for i, row := range b {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}
