package server

import (
	"fmt"
	"strings"
)

// submitAnswer upserts the player's answer for a category in the current
// round. Resubmission overwrites; only the latest text is scored.
func submitAnswer(sess *Session, playerID, category, text string) error {
	if sess.Status != statusActive {
		return fmt.Errorf("%w: answers only accepted while a round is active", ErrState)
	}
	if !sessionHasCategory(sess, category) {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}
	round := currentRound(sess)
	if round == nil {
		return fmt.Errorf("%w: round not started", ErrState)
	}
	trimmed := strings.TrimSpace(text)
	for i := range round.Answers {
		if round.Answers[i].PlayerID == playerID && round.Answers[i].Category == category {
			round.Answers[i].Text = trimmed
			return nil
		}
	}
	round.Answers = append(round.Answers, AnswerEntry{
		PlayerID: playerID,
		Category: category,
		Text:     trimmed,
	})
	return nil
}

// applyVote bumps one of the peer tally counters on an answer. Votes carry
// no voter identity at this layer, so repeat votes are counted as cast.
func applyVote(sess *Session, roundNumber int, targetPlayerID, category, voteType string) (*AnswerEntry, error) {
	round := roundByNumber(sess, roundNumber)
	if round == nil {
		return nil, fmt.Errorf("%w: round %d", ErrNotFound, roundNumber)
	}
	if round.Finalized {
		return nil, fmt.Errorf("%w: round %d already finalized", ErrState, roundNumber)
	}
	if sess.Status != statusReviewing || sess.CurrentRound != roundNumber {
		return nil, fmt.Errorf("%w: votes only accepted while round %d is in review", ErrState, roundNumber)
	}
	for i := range round.Answers {
		answer := &round.Answers[i]
		if answer.PlayerID != targetPlayerID || answer.Category != category {
			continue
		}
		switch voteType {
		case voteValid:
			answer.ValidVotes++
		case voteInvalid:
			answer.InvalidVotes++
		case voteShared:
			answer.SharedVotes++
		default:
			return nil, fmt.Errorf("%w: unknown vote type %q", ErrValidation, voteType)
		}
		return answer, nil
	}
	return nil, fmt.Errorf("%w: no answer by %s for %q in round %d", ErrNotFound, targetPlayerID, category, roundNumber)
}

func sessionHasCategory(sess *Session, category string) bool {
	for _, name := range sess.Categories {
		if name == category {
			return true
		}
	}
	return false
}
