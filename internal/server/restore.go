package server

import (
	"errors"
	"fmt"
	"log"
	"time"

	"stopthebus/internal/db"

	"gorm.io/gorm"
)

// getSession resolves a session id or room code against the cache first
// and falls back to durable storage on a miss.
func (s *Server) getSession(param string) (*Session, error) {
	if sess, ok := s.store.GetSession(param); ok {
		return sess, nil
	}
	if sess, ok := s.store.FindByRoomCode(param); ok {
		return sess, nil
	}
	return s.hydrateSession(param)
}

// hydrateSession rebuilds a session from its durable rows and re-inserts
// it into the cache. Round history travels along so the leaderboard
// survives a process restart; an open round gets its timers re-armed.
func (s *Server) hydrateSession(param string) (*Session, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, param)
	}
	var record db.Session
	if err := s.db.Where("session_id = ? OR room_code = ?", param, param).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, param)
		}
		return nil, err
	}

	categories, err := s.loadCategories(record.ID)
	if err != nil {
		return nil, err
	}
	rounds, roundIDs, err := s.loadRounds(record.ID)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:                record.SessionID,
		RoomCode:          record.RoomCode,
		HostID:            record.HostID,
		Categories:        categories,
		TotalRounds:       record.TotalRounds,
		RoundDuration:     record.RoundDuration,
		AllowedLetters:    record.AllowedLetters,
		CurrentRound:      record.CurrentRound,
		OverallTimeLeft:   record.OverallTimeLeft,
		GlobalTimerPaused: record.Status != statusActive,
		Status:            record.Status,
		Rounds:            rounds,
	}
	if sess.Status == statusActive || sess.Status == statusReviewing {
		if round := roundByNumber(sess, sess.CurrentRound); round != nil {
			sess.CurrentLetter = round.Letter
		}
	}

	s.ids.setSession(sess.ID, record.ID)
	for number, dbID := range roundIDs {
		s.ids.setRound(sess.ID, number, dbID)
	}

	// Rearm parameters are computed before the store takes ownership of
	// sess; afterwards only detached copies are safe to touch.
	sessionID := sess.ID
	rearm := false
	rearmRound := 0
	var remaining time.Duration
	if sess.Status == statusActive {
		if round := roundByNumber(sess, sess.CurrentRound); round != nil {
			rearm = true
			rearmRound = round.Number
			remaining = time.Duration(sess.RoundDuration)*time.Second - s.clock.Now().UTC().Sub(round.StartedAt)
			if remaining < 0 {
				remaining = 0
			}
		}
	}

	if err := s.store.RestoreSession(sess); err != nil {
		// Another handler hydrated the same session first.
		if cached, ok := s.store.GetSession(sessionID); ok {
			return cached, nil
		}
		return nil, err
	}
	cached, ok := s.store.GetSession(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	log.Printf("session hydrated session_id=%s room_code=%s status=%s rounds=%d", cached.ID, cached.RoomCode, cached.Status, len(cached.Rounds))

	if rearm {
		// A deadline that passed while the process was down fires at once.
		s.armRoundTimer(sessionID, rearmRound, remaining)
		s.startHeartbeat(sessionID)
	}
	return cached, nil
}

func (s *Server) loadCategories(sessionDBID uint) ([]string, error) {
	var records []db.SessionCategory
	if err := s.db.Where("session_id = ?", sessionDBID).Order("position asc").Find(&records).Error; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, record := range records {
		names = append(names, record.Name)
	}
	return names, nil
}

func (s *Server) loadRounds(sessionDBID uint) ([]RoundState, map[int]uint, error) {
	var rounds []db.Round
	if err := s.db.Where("session_id = ?", sessionDBID).Order("number asc").Find(&rounds).Error; err != nil {
		return nil, nil, err
	}
	if len(rounds) == 0 {
		return nil, nil, nil
	}

	roundIDs := make([]uint, 0, len(rounds))
	for _, round := range rounds {
		roundIDs = append(roundIDs, round.ID)
	}
	var answers []db.Answer
	if err := s.db.Where("round_id IN ?", roundIDs).Order("id asc").Find(&answers).Error; err != nil {
		return nil, nil, err
	}
	var scores []db.RoundScore
	if err := s.db.Where("round_id IN ?", roundIDs).Order("id asc").Find(&scores).Error; err != nil {
		return nil, nil, err
	}

	answersByRound := map[uint][]db.Answer{}
	for _, answer := range answers {
		answersByRound[answer.RoundID] = append(answersByRound[answer.RoundID], answer)
	}
	scoresByRound := map[uint][]db.RoundScore{}
	for _, score := range scores {
		scoresByRound[score.RoundID] = append(scoresByRound[score.RoundID], score)
	}

	states := make([]RoundState, 0, len(rounds))
	idsByNumber := make(map[int]uint, len(rounds))
	for _, round := range rounds {
		idsByNumber[round.Number] = round.ID
		state := RoundState{
			Number:    round.Number,
			Letter:    round.Letter,
			StartedAt: round.StartedAt,
		}
		if round.EndedAt != nil {
			state.EndedAt = *round.EndedAt
			state.Finalized = true
		}
		for _, answer := range answersByRound[round.ID] {
			state.Answers = append(state.Answers, AnswerEntry{
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
		for _, score := range scoresByRound[round.ID] {
			state.Scores = append(state.Scores, RoundScore{
				PlayerID:    score.PlayerID,
				TotalPoints: score.TotalPoints,
				IsWinner:    score.IsWinner,
			})
		}
		states = append(states, state)
	}
	return states, idsByNumber, nil
}
