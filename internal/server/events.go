package server

const (
	eventSessionCreated   = "session_created"
	eventConfigUpdated    = "config_updated"
	eventRoundStarted     = "round_started"
	eventAnswerSubmitted  = "answer_submitted"
	eventAnswerPhaseEnded = "answer_phase_ended"
	eventVoteUpdated      = "vote_updated"
	eventRoundEnded       = "round_ended"
	eventGameEnded        = "game_ended"
	eventTimerTick        = "timer_tick"
)

// EventPayload is the single payload shape for both the websocket pushes
// and the persisted event log.
type EventPayload struct {
	SessionID       string             `json:"session_id,omitempty"`
	RoomCode        string             `json:"room_code,omitempty"`
	PlayerID        string             `json:"player_id,omitempty"`
	RoundNumber     int                `json:"round_number,omitempty"`
	Letter          string             `json:"letter,omitempty"`
	Duration        int                `json:"duration,omitempty"`
	OverallTimeLeft int                `json:"overall_time_left,omitempty"`
	StoppedBy       string             `json:"stopped_by,omitempty"`
	Category        string             `json:"category,omitempty"`
	VoteType        string             `json:"vote_type,omitempty"`
	TargetPlayerID  string             `json:"target_player_id,omitempty"`
	Status          string             `json:"status,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	Answers         []answerView       `json:"answers,omitempty"`
	Scores          []scoreView        `json:"scores,omitempty"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard,omitempty"`
}

type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
