package server

import "time"

const (
	statusWaiting   = "waiting"
	statusActive    = "active"
	statusReviewing = "reviewing"
	statusFinished  = "finished"
)

const (
	voteValid   = "valid"
	voteInvalid = "invalid"
	voteShared  = "shared"
)

const (
	pointsShared = 5
	pointsUnique = 10
)

// Session is the authoritative in-memory record of one match. The cached
// copy is only touched inside Store callbacks; everything handed out of
// the store is a detached copy.
type Session struct {
	ID                string
	RoomCode          string
	HostID            string
	Categories        []string
	TotalRounds       int
	RoundDuration     int
	AllowedLetters    string
	CurrentRound      int
	CurrentLetter     string
	OverallTimeLeft   int
	GlobalTimerPaused bool
	Status            string
	Rounds            []RoundState
}

type RoundState struct {
	Number    int
	Letter    string
	StartedAt time.Time
	EndedAt   time.Time
	Finalized bool
	StoppedBy string
	Answers   []AnswerEntry
	Scores    []RoundScore
}

type AnswerEntry struct {
	PlayerID      string
	Category      string
	Text          string
	ValidVotes    int
	InvalidVotes  int
	SharedVotes   int
	PointsAwarded int
	IsUnique      bool
}

type RoundScore struct {
	PlayerID    string
	TotalPoints int
	IsWinner    bool
}

type LeaderboardEntry struct {
	PlayerID    string `json:"player_id"`
	TotalPoints int    `json:"total_points"`
}

// SessionConfig carries the host-editable match settings. All fields are
// frozen once the first round starts.
type SessionConfig struct {
	Categories     []string
	TotalRounds    int
	RoundDuration  int
	AllowedLetters string
	MatchDuration  int
}
