package game

import "gomoku/internal/models"

func proposeDraw(s *models.Session, a models.Action) {
	s.DrawProposer = a.Color
}

func agreeDraw(s *models.Session) {
	s.DrawProposer = models.NoColor
	finish(s, models.WinnerDraw, models.EndReasonDraw)
}

func disagreeDraw(s *models.Session) {
	s.DrawProposer = models.NoColor
}
