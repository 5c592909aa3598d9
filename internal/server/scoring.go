package server

import (
	"sort"
	"strings"
)

// scoreRound converts raw answers and peer votes into points, once per
// round at finalize time.
//
// An answer scores 0 when empty, when it does not start with the round's
// letter, or when the invalid tally beats the valid tally. Remaining
// answers score 5 when duplicated within their category or flagged shared
// by voters, and 10 when unique.
func scoreRound(round *RoundState) {
	letter := strings.ToLower(round.Letter)

	valid := make([]bool, len(round.Answers))
	duplicates := make(map[string]int)
	for i := range round.Answers {
		answer := &round.Answers[i]
		text := strings.TrimSpace(answer.Text)
		if text == "" {
			continue
		}
		first := strings.ToLower(string([]rune(text)[0]))
		if first != letter {
			continue
		}
		if answer.InvalidVotes > answer.ValidVotes {
			continue
		}
		valid[i] = true
		duplicates[duplicateKey(answer.Category, text)]++
	}

	totals := make(map[string]int)
	for i := range round.Answers {
		answer := &round.Answers[i]
		if !valid[i] {
			answer.PointsAwarded = 0
			answer.IsUnique = false
		} else if duplicates[duplicateKey(answer.Category, answer.Text)] > 1 || answer.SharedVotes > 0 {
			answer.PointsAwarded = pointsShared
			answer.IsUnique = false
		} else {
			answer.PointsAwarded = pointsUnique
			answer.IsUnique = true
		}
		if _, seen := totals[answer.PlayerID]; !seen {
			totals[answer.PlayerID] = 0
		}
		totals[answer.PlayerID] += answer.PointsAwarded
	}

	round.Scores = buildRoundScores(totals)
}

func duplicateKey(category, text string) string {
	return category + "\x00" + strings.ToLower(strings.TrimSpace(text))
}

func buildRoundScores(totals map[string]int) []RoundScore {
	scores := make([]RoundScore, 0, len(totals))
	max := 0
	for playerID, points := range totals {
		scores = append(scores, RoundScore{PlayerID: playerID, TotalPoints: points})
		if points > max {
			max = points
		}
	}
	for i := range scores {
		scores[i].IsWinner = max > 0 && scores[i].TotalPoints == max
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].TotalPoints != scores[j].TotalPoints {
			return scores[i].TotalPoints > scores[j].TotalPoints
		}
		return scores[i].PlayerID < scores[j].PlayerID
	})
	return scores
}

// leaderboard sums every finalized round's scores per player, highest
// total first. Used for live standings and the game_ended payload.
func leaderboard(sess *Session) []LeaderboardEntry {
	totals := make(map[string]int)
	for i := range sess.Rounds {
		round := &sess.Rounds[i]
		if !round.Finalized {
			continue
		}
		for _, score := range round.Scores {
			totals[score.PlayerID] += score.TotalPoints
		}
	}
	entries := make([]LeaderboardEntry, 0, len(totals))
	for playerID, points := range totals {
		entries = append(entries, LeaderboardEntry{PlayerID: playerID, TotalPoints: points})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	return entries
}
