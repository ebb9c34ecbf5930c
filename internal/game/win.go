package game

import "gomoku/internal/models"

// WinLength is the run of same-colored stones that ends the game.
const WinLength = 5

// axes are the four line directions through a cell; each is walked both ways.
var axes = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// CheckWin reports whether the stone at p completes a run of WinLength or more.
// Only lines through p are inspected.
func CheckWin(board models.Board, p models.Position) bool {
	mark := board.At(p)
	if mark == models.Empty {
		return false
	}
	for _, d := range axes {
		count := 1 + run(board, p, d[0], d[1], mark) + run(board, p, -d[0], -d[1], mark)
		if count >= WinLength {
			return true
		}
	}
	return false
}

// run counts consecutive mark cells from p (exclusive) along (dx, dy).
func run(board models.Board, p models.Position, dx, dy int, mark models.Cell) int {
	n := 0
	next := models.Position{X: p.X + dx, Y: p.Y + dy}
	for next.InBounds(board.Size()) && board.At(next) == mark {
		n++
		next.X += dx
		next.Y += dy
	}
	return n
}
