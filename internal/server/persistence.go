package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"stopthebus/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The persist helpers are write-behind: the in-memory mutation has already
// unblocked connected clients by the time they run. Callers log failures
// and move on; a storage outage degrades durability, not gameplay.
//
// They receive detached session copies, so durable row IDs live in
// durableIDs on the Server rather than on the Session itself.

type durableIDs struct {
	mu       sync.Mutex
	sessions map[string]uint
	rounds   map[string]map[int]uint
}

func newDurableIDs() *durableIDs {
	return &durableIDs{
		sessions: make(map[string]uint),
		rounds:   make(map[string]map[int]uint),
	}
}

func (d *durableIDs) session(id string) (uint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dbID, ok := d.sessions[id]
	return dbID, ok
}

func (d *durableIDs) setSession(id string, dbID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[id] = dbID
}

func (d *durableIDs) round(id string, number int) (uint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dbID, ok := d.rounds[id][number]
	return dbID, ok
}

func (d *durableIDs) setRound(id string, number int, dbID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	byNumber := d.rounds[id]
	if byNumber == nil {
		byNumber = make(map[int]uint)
		d.rounds[id] = byNumber
	}
	byNumber[number] = dbID
}

func (s *Server) persistSession(sess *Session) error {
	if s.db == nil {
		return nil
	}
	record := db.Session{
		SessionID:       sess.ID,
		RoomCode:        sess.RoomCode,
		HostID:          sess.HostID,
		TotalRounds:     sess.TotalRounds,
		RoundDuration:   sess.RoundDuration,
		AllowedLetters:  sess.AllowedLetters,
		CurrentRound:    sess.CurrentRound,
		OverallTimeLeft: sess.OverallTimeLeft,
		Status:          sess.Status,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		if !isUniqueViolation(err) {
			return err
		}
	}
	if record.ID != 0 {
		s.ids.setSession(sess.ID, record.ID)
	} else if _, err := s.sessionDBID(sess.ID); err != nil {
		return err
	}
	if err := s.persistCategories(sess); err != nil {
		return err
	}
	return s.persistEvent(sess, eventSessionCreated, EventPayload{
		SessionID: sess.ID,
		RoomCode:  sess.RoomCode,
	})
}

func (s *Server) persistCategories(sess *Session) error {
	if s.db == nil {
		return nil
	}
	dbID, err := s.sessionDBID(sess.ID)
	if err != nil {
		return err
	}
	if err := s.db.Where("session_id = ?", dbID).Delete(&db.SessionCategory{}).Error; err != nil {
		return err
	}
	for position, name := range sess.Categories {
		record := db.SessionCategory{
			SessionID: dbID,
			Name:      name,
			Position:  position,
		}
		if err := s.db.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) persistConfig(sess *Session) error {
	if s.db == nil {
		return nil
	}
	dbID, err := s.sessionDBID(sess.ID)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"total_rounds":      sess.TotalRounds,
		"round_duration":    sess.RoundDuration,
		"allowed_letters":   sess.AllowedLetters,
		"overall_time_left": sess.OverallTimeLeft,
	}
	if err := s.db.Model(&db.Session{}).Where("id = ?", dbID).Updates(updates).Error; err != nil {
		return err
	}
	if err := s.persistCategories(sess); err != nil {
		return err
	}
	return s.persistEvent(sess, eventConfigUpdated, EventPayload{SessionID: sess.ID})
}

// persistSessionState flushes the phase-boundary columns and appends an
// event-log row.
func (s *Server) persistSessionState(sess *Session, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	dbID, err := s.sessionDBID(sess.ID)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"current_round":     sess.CurrentRound,
		"overall_time_left": sess.OverallTimeLeft,
		"status":            sess.Status,
	}
	if err := s.db.Model(&db.Session{}).Where("id = ?", dbID).Updates(updates).Error; err != nil {
		return err
	}
	return s.persistEvent(sess, eventType, payload)
}

func (s *Server) persistRoundStart(sess *Session, round *RoundState) error {
	if s.db == nil || round == nil {
		return nil
	}
	if _, ok := s.ids.round(sess.ID, round.Number); ok {
		return nil
	}
	dbID, err := s.sessionDBID(sess.ID)
	if err != nil {
		return err
	}
	record := db.Round{
		SessionID: dbID,
		Number:    round.Number,
		Letter:    round.Letter,
		StartedAt: round.StartedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			_, err = s.roundDBID(sess.ID, round.Number)
		}
		return err
	}
	s.ids.setRound(sess.ID, round.Number, record.ID)
	return nil
}

func (s *Server) persistAnswer(sess *Session, round *RoundState, answer *AnswerEntry) error {
	if s.db == nil {
		return nil
	}
	if err := s.persistRoundStart(sess, round); err != nil {
		return err
	}
	roundID, err := s.roundDBID(sess.ID, round.Number)
	if err != nil {
		return err
	}
	record := db.Answer{
		RoundID:  roundID,
		PlayerID: answer.PlayerID,
		Category: answer.Category,
		Text:     answer.Text,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "player_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return err
	}
	return s.persistEvent(sess, eventAnswerSubmitted, EventPayload{
		PlayerID: answer.PlayerID,
		Category: answer.Category,
	})
}

func (s *Server) persistVote(sess *Session, roundNumber int, answer *AnswerEntry) error {
	if s.db == nil {
		return nil
	}
	roundID, err := s.roundDBID(sess.ID, roundNumber)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"valid_votes":   answer.ValidVotes,
		"invalid_votes": answer.InvalidVotes,
		"shared_votes":  answer.SharedVotes,
	}
	return s.db.Model(&db.Answer{}).
		Where("round_id = ? AND player_id = ? AND category = ?", roundID, answer.PlayerID, answer.Category).
		Updates(updates).Error
}

func (s *Server) persistFinalizedRound(sess *Session, round *RoundState) error {
	if s.db == nil {
		return nil
	}
	if err := s.persistRoundStart(sess, round); err != nil {
		return err
	}
	roundID, err := s.roundDBID(sess.ID, round.Number)
	if err != nil {
		return err
	}
	endedAt := round.EndedAt
	if err := s.db.Model(&db.Round{}).Where("id = ?", roundID).Update("ended_at", &endedAt).Error; err != nil {
		return err
	}
	for i := range round.Answers {
		answer := &round.Answers[i]
		updates := map[string]any{
			"points_awarded": answer.PointsAwarded,
			"is_unique":      answer.IsUnique,
		}
		if err := s.db.Model(&db.Answer{}).
			Where("round_id = ? AND player_id = ? AND category = ?", roundID, answer.PlayerID, answer.Category).
			Updates(updates).Error; err != nil {
			return err
		}
	}
	for _, score := range round.Scores {
		record := db.RoundScore{
			RoundID:     roundID,
			PlayerID:    score.PlayerID,
			TotalPoints: score.TotalPoints,
			IsWinner:    score.IsWinner,
		}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			if !isUniqueViolation(err) {
				return err
			}
		}
	}
	return nil
}

func (s *Server) persistEvent(sess *Session, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	dbID, err := s.sessionDBID(sess.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := db.Event{
		SessionID: dbID,
		RoundID:   s.resolveEventRoundID(sess),
		PlayerID:  payload.PlayerID,
		Type:      eventType,
		Payload:   datatypes.JSON(data),
	}
	return s.db.Create(&event).Error
}

func (s *Server) resolveEventRoundID(sess *Session) *uint {
	round := currentRound(sess)
	if round == nil {
		return nil
	}
	if id, ok := s.ids.round(sess.ID, round.Number); ok {
		return &id
	}
	return nil
}

// sessionDBID resolves the durable row ID for a session, consulting the
// cache first and falling back to a lookup by public session ID.
func (s *Server) sessionDBID(sessionID string) (uint, error) {
	if dbID, ok := s.ids.session(sessionID); ok {
		return dbID, nil
	}
	var record db.Session
	if err := s.db.Where("session_id = ?", sessionID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: session %s has no durable row", ErrNotFound, sessionID)
		}
		return 0, err
	}
	s.ids.setSession(sessionID, record.ID)
	return record.ID, nil
}

func (s *Server) roundDBID(sessionID string, number int) (uint, error) {
	if dbID, ok := s.ids.round(sessionID, number); ok {
		return dbID, nil
	}
	sessDBID, err := s.sessionDBID(sessionID)
	if err != nil {
		return 0, err
	}
	var record db.Round
	if err := s.db.Where("session_id = ? AND number = ?", sessDBID, number).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: round %d has no durable row", ErrNotFound, number)
		}
		return 0, err
	}
	s.ids.setRound(sessionID, number, record.ID)
	return record.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
