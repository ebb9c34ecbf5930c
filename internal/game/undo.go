package game

import "gomoku/internal/models"

// undoCount returns how many trailing moves an undo proposed by proposer
// reverts: one when the proposer made the last move, two otherwise. ok is
// false when the history does not hold that many moves.
func undoCount(s models.Session, proposer models.Color) (n int, ok bool) {
	moves := s.Moves()
	if len(moves) == 0 {
		return 0, false
	}
	n = 2
	if moves[len(moves)-1].Color == proposer {
		n = 1
	}
	return n, len(moves) >= n
}

func proposeUndo(s *models.Session, a models.Action) {
	s.UndoProposer = a.Color
}

func agreeUndo(s *models.Session) {
	proposer := s.UndoProposer
	n, _ := undoCount(*s, proposer)
	revertMoves(s, n)
	s.CurrentTurn = proposer
	s.UndoProposer = models.NoColor
}

func disagreeUndo(s *models.Session) {
	s.UndoProposer = models.NoColor
}

// revertMoves clears the cells of the last n MOVE entries and drops them from
// the history. Other entries keep their order.
func revertMoves(s *models.Session, n int) {
	for i := len(s.ActionHistory) - 1; i >= 0 && n > 0; i-- {
		a := s.ActionHistory[i]
		if a.Type != models.ActionMove {
			continue
		}
		if a.Position != nil {
			s.Board.Set(*a.Position, models.Empty)
		}
		s.ActionHistory = append(s.ActionHistory[:i], s.ActionHistory[i+1:]...)
		s.TotalMoves--
		n--
	}
}
