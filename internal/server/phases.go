package server

import (
	"fmt"
	"time"
)

// beginRound moves a waiting session into the active phase and opens a new
// round with the drawn letter. Callers hold the store lock.
func beginRound(sess *Session, letter string, at time.Time) error {
	if sess.Status == statusFinished {
		return ErrGameCompleted
	}
	if sess.Status != statusWaiting {
		return fmt.Errorf("%w: round already in progress", ErrState)
	}
	if sess.CurrentRound >= sess.TotalRounds || sess.OverallTimeLeft <= 0 {
		return ErrGameCompleted
	}
	sess.CurrentRound++
	sess.CurrentLetter = letter
	sess.GlobalTimerPaused = false
	sess.Status = statusActive
	sess.Rounds = append(sess.Rounds, RoundState{
		Number:    sess.CurrentRound,
		Letter:    letter,
		StartedAt: at,
	})
	return nil
}

// endAnswerPhase is the single active → reviewing transition. The round
// timer and a manual stop both land here; whichever arrives first wins and
// later callers are a no-op, which is what makes the race benign. Returns
// whether this call performed the transition.
func endAnswerPhase(sess *Session, roundNumber int, stoppedBy string) (bool, error) {
	round := roundByNumber(sess, roundNumber)
	if round == nil {
		return false, fmt.Errorf("%w: round %d", ErrNotFound, roundNumber)
	}
	if sess.CurrentRound != roundNumber {
		return false, fmt.Errorf("%w: round %d is not the current round", ErrState, roundNumber)
	}
	if sess.Status == statusReviewing {
		return false, nil
	}
	if sess.Status != statusActive {
		return false, fmt.Errorf("%w: round %d is not active", ErrState, roundNumber)
	}
	sess.Status = statusReviewing
	sess.GlobalTimerPaused = true
	round.StoppedBy = stoppedBy
	return true, nil
}

// finalizeRound scores the round and decides whether the match continues.
// Idempotent: a second call returns the already-scored round unchanged.
func finalizeRound(sess *Session, roundNumber int, at time.Time) (*RoundState, bool, error) {
	round := roundByNumber(sess, roundNumber)
	if round == nil {
		return nil, false, fmt.Errorf("%w: round %d", ErrNotFound, roundNumber)
	}
	if round.Finalized {
		return round, false, nil
	}
	if sess.Status != statusReviewing || sess.CurrentRound != roundNumber {
		return nil, false, fmt.Errorf("%w: round %d is not in review", ErrState, roundNumber)
	}
	scoreRound(round)
	round.Finalized = true
	round.EndedAt = at
	sess.CurrentLetter = ""
	if sess.CurrentRound >= sess.TotalRounds || sess.OverallTimeLeft <= 0 {
		sess.Status = statusFinished
	} else {
		sess.Status = statusWaiting
	}
	return round, true, nil
}
