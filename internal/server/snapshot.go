package server

type answerView struct {
	PlayerID      string `json:"player_id"`
	Category      string `json:"category"`
	Text          string `json:"text"`
	ValidVotes    int    `json:"valid_votes"`
	InvalidVotes  int    `json:"invalid_votes"`
	SharedVotes   int    `json:"shared_votes"`
	PointsAwarded int    `json:"points_awarded"`
	IsUnique      bool   `json:"is_unique"`
}

type scoreView struct {
	PlayerID    string `json:"player_id"`
	TotalPoints int    `json:"total_points"`
	IsWinner    bool   `json:"is_winner"`
}

// snapshot is the idempotent pull payload late joiners and reconnecting
// clients use to catch up with the room.
func snapshot(sess *Session) map[string]any {
	var currentLetter any
	if sess.CurrentLetter != "" {
		currentLetter = sess.CurrentLetter
	}
	var reviewAnswers []answerView
	var stoppedBy string
	if sess.Status == statusReviewing {
		if round := currentRound(sess); round != nil {
			reviewAnswers = answerViews(round)
			stoppedBy = round.StoppedBy
		}
	}
	return map[string]any{
		"session_id":        sess.ID,
		"room_code":         sess.RoomCode,
		"host_id":           sess.HostID,
		"categories":        append([]string(nil), sess.Categories...),
		"total_rounds":      sess.TotalRounds,
		"round_duration":    sess.RoundDuration,
		"allowed_letters":   sess.AllowedLetters,
		"current_round":     sess.CurrentRound,
		"current_letter":    currentLetter,
		"status":            sess.Status,
		"overall_time_left": sess.OverallTimeLeft,
		"stopped_by":        stoppedBy,
		"answers":           reviewAnswers,
		"leaderboard":       leaderboard(sess),
	}
}

func answerViews(round *RoundState) []answerView {
	views := make([]answerView, 0, len(round.Answers))
	for _, answer := range round.Answers {
		views = append(views, answerView{
			PlayerID:      answer.PlayerID,
			Category:      answer.Category,
			Text:          answer.Text,
			ValidVotes:    answer.ValidVotes,
			InvalidVotes:  answer.InvalidVotes,
			SharedVotes:   answer.SharedVotes,
			PointsAwarded: answer.PointsAwarded,
			IsUnique:      answer.IsUnique,
		})
	}
	return views
}

func scoreViews(round *RoundState) []scoreView {
	views := make([]scoreView, 0, len(round.Scores))
	for _, score := range round.Scores {
		views = append(views, scoreView{
			PlayerID:    score.PlayerID,
			TotalPoints: score.TotalPoints,
			IsWinner:    score.IsWinner,
		})
	}
	return views
}
