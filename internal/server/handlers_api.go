package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"stopthebus/internal/db"
)

type sessionConfigRequest struct {
	Categories     []string `json:"categories"`
	TotalRounds    int      `json:"total_rounds"`
	RoundDuration  int      `json:"round_duration"`
	AllowedLetters string   `json:"allowed_letters"`
	MatchDuration  int      `json:"match_duration"`
}

type createSessionRequest struct {
	RoomCode string               `json:"room_code"`
	HostID   string               `json:"host_id"`
	Config   sessionConfigRequest `json:"config"`
}

type startRoundRequest struct {
	PlayerID string `json:"player_id"`
}

type answerRequest struct {
	PlayerID string `json:"player_id"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

type stopRoundRequest struct {
	PlayerID    string `json:"player_id"`
	RoundNumber int    `json:"round_number"`
}

type voteRequest struct {
	PlayerID       string `json:"player_id"`
	RoundNumber    int    `json:"round_number"`
	TargetPlayerID string `json:"target_player_id"`
	Category       string `json:"category"`
	VoteType       string `json:"vote_type"`
}

type finalizeRequest struct {
	RoundNumber int `json:"round_number"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "room_code, host_id and config are required")
		return
	}
	roomCode, err := validateRoomCode(req.RoomCode)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	hostID, err := validatePlayerID(req.HostID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	cfg, err := validateSessionConfig(SessionConfig{
		Categories:     req.Config.Categories,
		TotalRounds:    req.Config.TotalRounds,
		RoundDuration:  req.Config.RoundDuration,
		AllowedLetters: req.Config.AllowedLetters,
		MatchDuration:  req.Config.MatchDuration,
	}, s.cfg)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	sess, err := s.store.CreateSession(roomCode, hostID, cfg)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	if err := s.persistSession(sess); err != nil {
		log.Printf("persist session failed session_id=%s error=%v", sess.ID, err)
	}
	log.Printf("session created session_id=%s room_code=%s categories=%d rounds=%d", sess.ID, sess.RoomCode, len(sess.Categories), sess.TotalRounds)
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"room_code":  sess.RoomCode,
	})
	s.broadcastEvent(sess, eventSessionCreated, EventPayload{
		SessionID: sess.ID,
		RoomCode:  sess.RoomCode,
	})
}

func (s *Server) handleSessionSubroutes(w http.ResponseWriter, r *http.Request) {
	param, action, ok := parseSessionPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	sess, err := s.getSession(param)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		switch action {
		case "":
			writeJSON(w, http.StatusOK, snapshot(sess))
		case "leaderboard":
			s.handleLeaderboard(w, r, sess)
		case "events":
			s.handleEvents(w, r, sess)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "config":
			s.handleUpdateConfig(w, r, sess)
		case "start":
			s.handleStartRound(w, r, sess)
		case "answers":
			s.handleSubmitAnswer(w, r, sess)
		case "stop":
			s.handleStopRound(w, r, sess)
		case "votes":
			s.handleSubmitVote(w, r, sess)
		case "finalize":
			s.handleFinalizeRound(w, r, sess)
		default:
			http.NotFound(w, r)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req sessionConfigRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "config is required")
		return
	}
	cfg, err := validateSessionConfig(SessionConfig{
		Categories:     req.Categories,
		TotalRounds:    req.TotalRounds,
		RoundDuration:  req.RoundDuration,
		AllowedLetters: req.AllowedLetters,
		MatchDuration:  req.MatchDuration,
	}, s.cfg)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	updated, err := s.store.UpdateSession(sess.ID, func(sess *Session) error {
		if sess.Status != statusWaiting {
			return fmt.Errorf("%w: config is frozen once a round has started", ErrState)
		}
		if cfg.TotalRounds < sess.CurrentRound {
			return fmt.Errorf("%w: total_rounds cannot drop below rounds already played", ErrValidation)
		}
		sess.Categories = cfg.Categories
		sess.TotalRounds = cfg.TotalRounds
		sess.RoundDuration = cfg.RoundDuration
		sess.AllowedLetters = cfg.AllowedLetters
		// The match countdown only resets before the first round; between
		// rounds it keeps counting down from where it paused.
		if sess.CurrentRound == 0 {
			sess.OverallTimeLeft = cfg.MatchDuration
		}
		return nil
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	if err := s.persistConfig(updated); err != nil {
		log.Printf("persist config failed session_id=%s error=%v", updated.ID, err)
	}
	log.Printf("config updated session_id=%s categories=%d rounds=%d round_seconds=%d", updated.ID, len(updated.Categories), updated.TotalRounds, updated.RoundDuration)
	writeJSON(w, http.StatusOK, snapshot(updated))
	s.broadcastEvent(updated, eventConfigUpdated, EventPayload{SessionID: updated.ID})
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req startRoundRequest
	_ = readJSON(r.Body, &req)
	updated, err := s.store.UpdateSession(sess.ID, func(sess *Session) error {
		return beginRound(sess, drawLetter(sess.AllowedLetters), s.clock.Now().UTC())
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	round := currentRound(updated)
	if err := s.persistRoundStart(updated, round); err != nil {
		log.Printf("persist round failed session_id=%s round=%d error=%v", updated.ID, round.Number, err)
	}
	if err := s.persistSessionState(updated, eventRoundStarted, EventPayload{
		RoundNumber: round.Number,
		Letter:      round.Letter,
		PlayerID:    req.PlayerID,
	}); err != nil {
		log.Printf("persist state failed session_id=%s error=%v", updated.ID, err)
	}
	log.Printf("round started session_id=%s round=%d letter=%s time_left=%d", updated.ID, round.Number, round.Letter, updated.OverallTimeLeft)
	writeJSON(w, http.StatusOK, snapshot(updated))
	s.broadcastEvent(updated, eventRoundStarted, EventPayload{
		RoundNumber:     round.Number,
		Letter:          round.Letter,
		Duration:        updated.RoundDuration,
		OverallTimeLeft: updated.OverallTimeLeft,
	})
	s.scheduleRoundTimer(updated)
	s.startHeartbeat(updated.ID)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req answerRequest
	if err := readJSON(r.Body, &req); err != nil || req.Category == "" {
		writeError(w, http.StatusBadRequest, "player_id, category and text are required")
		return
	}
	playerID, err := validatePlayerID(req.PlayerID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	text, err := validateAnswerText(req.Text)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	updated, err := s.store.UpdateSession(sess.ID, func(sess *Session) error {
		return submitAnswer(sess, playerID, req.Category, text)
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	round := roundByNumber(updated, updated.CurrentRound)
	if err := s.persistAnswer(updated, round, &AnswerEntry{PlayerID: playerID, Category: req.Category, Text: text}); err != nil {
		log.Printf("persist answer failed session_id=%s player_id=%s error=%v", updated.ID, playerID, err)
	}
	log.Printf("answer submitted session_id=%s round=%d player_id=%s category=%s", updated.ID, updated.CurrentRound, playerID, req.Category)
	writeJSON(w, http.StatusOK, map[string]any{
		"round_number": updated.CurrentRound,
		"player_id":    playerID,
		"category":     req.Category,
	})
}

func (s *Server) handleStopRound(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req stopRoundRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoundNumber <= 0 {
		writeError(w, http.StatusBadRequest, "player_id and round_number are required")
		return
	}
	playerID, err := validatePlayerID(req.PlayerID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	changed := false
	updated, err := s.store.UpdateSession(sess.ID, func(sess *Session) error {
		var err error
		changed, err = endAnswerPhase(sess, req.RoundNumber, playerID)
		return err
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	if changed {
		s.cancelRoundTimer(updated.ID)
		if err := s.persistSessionState(updated, eventAnswerPhaseEnded, EventPayload{
			RoundNumber: req.RoundNumber,
			StoppedBy:   playerID,
		}); err != nil {
			log.Printf("persist state failed session_id=%s error=%v", updated.ID, err)
		}
		log.Printf("answer phase ended session_id=%s round=%d stopped_by=%s", updated.ID, req.RoundNumber, playerID)
		s.broadcastEvent(updated, eventAnswerPhaseEnded, EventPayload{
			RoundNumber: req.RoundNumber,
			StoppedBy:   playerID,
			Status:      updated.Status,
		})
	}
	writeJSON(w, http.StatusOK, snapshot(updated))
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req voteRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoundNumber <= 0 || req.Category == "" {
		writeError(w, http.StatusBadRequest, "round_number, target_player_id, category and vote_type are required")
		return
	}
	targetID, err := validatePlayerID(req.TargetPlayerID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	var entry AnswerEntry
	updated, err := s.store.UpdateSession(sess.ID, func(sess *Session) error {
		answer, err := applyVote(sess, req.RoundNumber, targetID, req.Category, req.VoteType)
		if err != nil {
			return err
		}
		entry = *answer
		return nil
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	if err := s.persistVote(updated, req.RoundNumber, &entry); err != nil {
		log.Printf("persist vote failed session_id=%s target_id=%s error=%v", updated.ID, targetID, err)
	}
	log.Printf("vote submitted session_id=%s round=%d target_id=%s category=%s vote_type=%s", updated.ID, req.RoundNumber, targetID, req.Category, req.VoteType)
	writeJSON(w, http.StatusOK, map[string]any{
		"round_number":  req.RoundNumber,
		"valid_votes":   entry.ValidVotes,
		"invalid_votes": entry.InvalidVotes,
		"shared_votes":  entry.SharedVotes,
	})
	s.broadcastEvent(updated, eventVoteUpdated, EventPayload{
		RoundNumber:    req.RoundNumber,
		TargetPlayerID: targetID,
		Category:       req.Category,
		VoteType:       req.VoteType,
	})
}

func (s *Server) handleFinalizeRound(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req finalizeRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoundNumber <= 0 {
		writeError(w, http.StatusBadRequest, "round_number is required")
		return
	}
	changed := false
	updated, err := s.store.UpdateSession(sess.ID, func(sess *Session) error {
		var err error
		_, changed, err = finalizeRound(sess, req.RoundNumber, s.clock.Now().UTC())
		return err
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	round := roundByNumber(updated, req.RoundNumber)
	if changed {
		if err := s.persistFinalizedRound(updated, round); err != nil {
			log.Printf("persist scores failed session_id=%s round=%d error=%v", updated.ID, round.Number, err)
		}
		if err := s.persistSessionState(updated, eventRoundEnded, EventPayload{RoundNumber: round.Number}); err != nil {
			log.Printf("persist state failed session_id=%s error=%v", updated.ID, err)
		}
		log.Printf("round finalized session_id=%s round=%d status=%s", updated.ID, round.Number, updated.Status)
		s.broadcastRoundEnded(updated, round)
		if updated.Status == statusFinished {
			s.stopTimers(updated.ID)
			if err := s.persistEvent(updated, eventGameEnded, EventPayload{SessionID: updated.ID}); err != nil {
				log.Printf("persist event failed session_id=%s error=%v", updated.ID, err)
			}
			log.Printf("game ended session_id=%s rounds_played=%d", updated.ID, updated.CurrentRound)
			s.broadcastEvent(updated, eventGameEnded, EventPayload{Leaderboard: leaderboard(updated)})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"round_number": round.Number,
		"letter":       round.Letter,
		"status":       updated.Status,
		"answers":      answerViews(round),
		"scores":       scoreViews(round),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request, sess *Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  sess.ID,
		"leaderboard": leaderboard(sess),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess *Session) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "events not available")
		return
	}
	page, perPage := parsePagination(r, 50, 200)
	dbID, err := s.sessionDBID(sess.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Never persisted; the log is simply empty.
			writeJSON(w, http.StatusOK, map[string]any{
				"session_id": sess.ID,
				"events":     []map[string]any{},
				"page":       page,
				"per_page":   perPage,
				"total":      0,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	var total int64
	if err := s.db.Model(&db.Event{}).Where("session_id = ?", dbID).Count(&total).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	var records []db.Event
	if err := s.db.Where("session_id = ?", dbID).
		Order("created_at asc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&records).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	events := make([]map[string]any, 0, len(records))
	for _, record := range records {
		events = append(events, map[string]any{
			"id":         record.ID,
			"type":       record.Type,
			"round_id":   record.RoundID,
			"player_id":  record.PlayerID,
			"created_at": record.CreatedAt,
			"payload":    record.Payload,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"events":     events,
		"page":       page,
		"per_page":   perPage,
		"total":      total,
	})
}
