package server

import (
	"errors"
	"log"
	"time"
)

// scheduleRoundTimer arms the one-shot deadline that auto-ends the answer
// phase. A stale timer from a previous round of the same session is
// cancelled first.
func (s *Server) scheduleRoundTimer(sess *Session) {
	s.armRoundTimer(sess.ID, sess.CurrentRound, time.Duration(sess.RoundDuration)*time.Second)
}

func (s *Server) armRoundTimer(sessionID string, roundNumber int, d time.Duration) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if existing, ok := s.roundTimers[sessionID]; ok {
		existing.Stop()
	}
	s.roundTimers[sessionID] = s.clock.AfterFunc(d, func() {
		s.autoEndAnswerPhase(sessionID, roundNumber)
	})
}

func (s *Server) cancelRoundTimer(sessionID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.roundTimers[sessionID]; ok {
		timer.Stop()
		delete(s.roundTimers, sessionID)
	}
}

// autoEndAnswerPhase fires when the round deadline passes. The transition
// is the same idempotent check-and-set a manual stop uses, so losing the
// race to a stop command is a silent no-op.
func (s *Server) autoEndAnswerPhase(sessionID string, roundNumber int) {
	changed := false
	sess, err := s.store.UpdateSession(sessionID, func(sess *Session) error {
		var err error
		changed, err = endAnswerPhase(sess, roundNumber, "")
		return err
	})
	if err != nil || !changed {
		return
	}
	s.cancelRoundTimer(sessionID)
	s.persistSessionState(sess, eventAnswerPhaseEnded, EventPayload{RoundNumber: roundNumber, Reason: "timeout"})
	log.Printf("answer phase ended session_id=%s round=%d reason=timeout", sess.ID, roundNumber)
	s.broadcastEvent(sess, eventAnswerPhaseEnded, EventPayload{
		RoundNumber: roundNumber,
		Status:      sess.Status,
	})
}

// startHeartbeat begins the 1-second global countdown for a session. It is
// a no-op when a heartbeat is already running; pausing happens inside the
// tick, not by stopping the goroutine.
func (s *Server) startHeartbeat(sessionID string) {
	s.timersMu.Lock()
	if _, ok := s.heartbeats[sessionID]; ok {
		s.timersMu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.heartbeats[sessionID] = stop
	s.timersMu.Unlock()
	go s.runHeartbeat(sessionID, stop)
}

func (s *Server) stopHeartbeat(sessionID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if stop, ok := s.heartbeats[sessionID]; ok {
		close(stop)
		delete(s.heartbeats, sessionID)
	}
}

func (s *Server) runHeartbeat(sessionID string, stop <-chan struct{}) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if done := s.tickGlobalTimer(sessionID); done {
				s.stopHeartbeat(sessionID)
				return
			}
		}
	}
}

// tickGlobalTimer decrements the match countdown while the session is
// active and unpaused. Reaching zero ends the open answer phase and
// finalizes the round immediately, leaving the session finished.
func (s *Server) tickGlobalTimer(sessionID string) bool {
	expired := false
	finalizedRound := 0
	sess, err := s.store.UpdateSession(sessionID, func(sess *Session) error {
		if sess.Status == statusFinished {
			expired = true
			return nil
		}
		if sess.Status != statusActive || sess.GlobalTimerPaused {
			return nil
		}
		sess.OverallTimeLeft--
		if sess.OverallTimeLeft > 0 {
			return nil
		}
		sess.OverallTimeLeft = 0
		expired = true
		if _, err := endAnswerPhase(sess, sess.CurrentRound, ""); err != nil {
			return err
		}
		if _, _, err := finalizeRound(sess, sess.CurrentRound, s.clock.Now().UTC()); err != nil {
			return err
		}
		finalizedRound = sess.CurrentRound
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("global timer tick failed session_id=%s error=%v", sessionID, err)
		}
		return true
	}
	if !expired {
		s.broadcastEvent(sess, eventTimerTick, EventPayload{OverallTimeLeft: sess.OverallTimeLeft})
		return false
	}
	round := roundByNumber(sess, finalizedRound)
	if round == nil {
		return true
	}
	s.cancelRoundTimer(sessionID)
	s.persistFinalizedRound(sess, round)
	s.persistSessionState(sess, eventRoundEnded, EventPayload{RoundNumber: round.Number, Reason: "time_expired"})
	log.Printf("match time expired session_id=%s round=%d", sess.ID, round.Number)
	s.broadcastEvent(sess, eventAnswerPhaseEnded, EventPayload{RoundNumber: round.Number, Status: statusReviewing})
	s.broadcastRoundEnded(sess, round)
	s.broadcastEvent(sess, eventGameEnded, EventPayload{Leaderboard: leaderboard(sess)})
	return true
}

// stopTimers cancels both schedules for a session. Required before a
// cached session is torn down or replaced by a hydrated copy.
func (s *Server) stopTimers(sessionID string) {
	s.cancelRoundTimer(sessionID)
	s.stopHeartbeat(sessionID)
}
