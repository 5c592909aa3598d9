package server

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store is the process-wide session cache. Every mutation of a cached
// session happens inside UpdateSession, and every session that leaves the
// store is a detached deep copy, so handlers, timer callbacks and the
// heartbeat never share a *Session across goroutines.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

func (s *Store) CreateSession(roomCode, hostID string, cfg SessionConfig) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.RoomCode == roomCode {
			return nil, fmt.Errorf("%w: room code already in use", ErrValidation)
		}
	}
	sess := &Session{
		ID:              uuid.NewString(),
		RoomCode:        roomCode,
		HostID:          hostID,
		Categories:      append([]string(nil), cfg.Categories...),
		TotalRounds:     cfg.TotalRounds,
		RoundDuration:   cfg.RoundDuration,
		AllowedLetters:  cfg.AllowedLetters,
		OverallTimeLeft: cfg.MatchDuration,
		Status:          statusWaiting,
	}
	s.sessions[sess.ID] = sess
	return cloneSession(sess), nil
}

func (s *Store) GetSession(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return cloneSession(sess), true
}

func (s *Store) FindByRoomCode(code string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.RoomCode == code {
			return cloneSession(sess), true
		}
	}
	return nil, false
}

// UpdateSession applies update to the cached session while holding the
// store lock and returns a detached copy of the result. The callback must
// not block and must not retain the *Session it is given.
func (s *Store) UpdateSession(id string, update func(sess *Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err := update(sess); err != nil {
		return nil, err
	}
	return cloneSession(sess), nil
}

// RestoreSession re-inserts a session hydrated from durable storage. The
// store takes ownership of sess; callers must not touch it afterwards.
func (s *Store) RestoreSession(sess *Session) error {
	if sess == nil {
		return fmt.Errorf("%w: session is nil", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("%w: session already cached", ErrValidation)
	}
	for _, existing := range s.sessions {
		if existing.RoomCode == sess.RoomCode {
			return fmt.Errorf("%w: room code already cached", ErrValidation)
		}
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) RemoveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// cloneSession deep-copies a session so readers never alias the slices the
// next UpdateSession callback may append to.
func cloneSession(sess *Session) *Session {
	clone := *sess
	clone.Categories = append([]string(nil), sess.Categories...)
	clone.Rounds = make([]RoundState, len(sess.Rounds))
	for i := range sess.Rounds {
		round := sess.Rounds[i]
		round.Answers = append([]AnswerEntry(nil), sess.Rounds[i].Answers...)
		round.Scores = append([]RoundScore(nil), sess.Rounds[i].Scores...)
		clone.Rounds[i] = round
	}
	return &clone
}

func currentRound(sess *Session) *RoundState {
	if len(sess.Rounds) == 0 {
		return nil
	}
	return &sess.Rounds[len(sess.Rounds)-1]
}

func roundByNumber(sess *Session, number int) *RoundState {
	if sess == nil || number <= 0 {
		return nil
	}
	for i := range sess.Rounds {
		if sess.Rounds[i].Number == number {
			return &sess.Rounds[i]
		}
	}
	return nil
}
