package server

import "testing"

func TestScoreRoundDuplicatesShare(t *testing.T) {
	round := &RoundState{
		Number: 1,
		Letter: "B",
		Answers: []AnswerEntry{
			{PlayerID: "ada", Category: "Fruits", Text: "Banana"},
			{PlayerID: "ben", Category: "Fruits", Text: "banana"},
			{PlayerID: "cleo", Category: "Fruits", Text: "Apple"},
		},
	}
	scoreRound(round)

	if round.Answers[0].PointsAwarded != pointsShared || round.Answers[1].PointsAwarded != pointsShared {
		t.Fatalf("expected case-insensitive duplicates to share points, got %d and %d", round.Answers[0].PointsAwarded, round.Answers[1].PointsAwarded)
	}
	if round.Answers[2].PointsAwarded != 0 {
		t.Fatalf("expected wrong-letter answer to score zero, got %d", round.Answers[2].PointsAwarded)
	}
	winners := map[string]bool{}
	for _, score := range round.Scores {
		winners[score.PlayerID] = score.IsWinner
	}
	if !winners["ada"] || !winners["ben"] || winners["cleo"] {
		t.Fatalf("expected ada and ben to tie as winners, got %v", winners)
	}
}

func TestScoreRoundUniqueAnswers(t *testing.T) {
	round := &RoundState{
		Number: 1,
		Letter: "B",
		Answers: []AnswerEntry{
			{PlayerID: "ada", Category: "Fruits", Text: "Blueberry"},
			{PlayerID: "ben", Category: "Fruits", Text: "Blackberry"},
		},
	}
	scoreRound(round)

	for _, answer := range round.Answers {
		if answer.PointsAwarded != pointsUnique || !answer.IsUnique {
			t.Fatalf("expected unique answer to score %d, got %+v", pointsUnique, answer)
		}
	}
	for _, score := range round.Scores {
		if !score.IsWinner {
			t.Fatalf("expected tied max scores to both win, got %+v", score)
		}
	}
}

func TestScoreRoundVoteOverrides(t *testing.T) {
	round := &RoundState{
		Number: 1,
		Letter: "B",
		Answers: []AnswerEntry{
			{PlayerID: "ada", Category: "Fruits", Text: "Banana", InvalidVotes: 2, ValidVotes: 1},
			{PlayerID: "ben", Category: "Fruits", Text: "Blueberry", SharedVotes: 1},
			{PlayerID: "cleo", Category: "Fruits", Text: "Bilberry", InvalidVotes: 1, ValidVotes: 1},
		},
	}
	scoreRound(round)

	if round.Answers[0].PointsAwarded != 0 {
		t.Fatalf("expected net-invalid answer to score zero, got %d", round.Answers[0].PointsAwarded)
	}
	if round.Answers[1].PointsAwarded != pointsShared {
		t.Fatalf("expected shared-flagged answer to score %d, got %d", pointsShared, round.Answers[1].PointsAwarded)
	}
	if round.Answers[2].PointsAwarded != pointsUnique {
		t.Fatalf("expected tied votes to leave the answer valid, got %d", round.Answers[2].PointsAwarded)
	}
}

func TestScoreRoundEmptyAnswers(t *testing.T) {
	round := &RoundState{
		Number: 1,
		Letter: "B",
		Answers: []AnswerEntry{
			{PlayerID: "ada", Category: "Fruits", Text: ""},
			{PlayerID: "ben", Category: "Fruits", Text: "   "},
		},
	}
	scoreRound(round)

	for _, score := range round.Scores {
		if score.TotalPoints != 0 || score.IsWinner {
			t.Fatalf("expected no winner when every answer scores zero, got %+v", score)
		}
	}
}

func TestLeaderboardSkipsUnfinalizedRounds(t *testing.T) {
	sess := &Session{
		Rounds: []RoundState{
			{
				Number:    1,
				Finalized: true,
				Scores: []RoundScore{
					{PlayerID: "ada", TotalPoints: 10},
					{PlayerID: "ben", TotalPoints: 5},
				},
			},
			{
				Number: 2,
				Scores: []RoundScore{
					{PlayerID: "ben", TotalPoints: 50},
				},
			},
			{
				Number:    3,
				Finalized: true,
				Scores: []RoundScore{
					{PlayerID: "ben", TotalPoints: 10},
				},
			},
		},
	}
	entries := leaderboard(sess)
	if len(entries) != 2 {
		t.Fatalf("expected two players, got %d", len(entries))
	}
	if entries[0].PlayerID != "ben" || entries[0].TotalPoints != 15 {
		t.Fatalf("expected ben at 15 on top, got %+v", entries[0])
	}
	if entries[1].PlayerID != "ada" || entries[1].TotalPoints != 10 {
		t.Fatalf("expected ada at 10, got %+v", entries[1])
	}
}
