package db

import "time"

type Round struct {
	ID        uint       `gorm:"primaryKey"`
	SessionID uint       `gorm:"index;not null;uniqueIndex:idx_rounds_session_number"`
	Number    int        `gorm:"not null;uniqueIndex:idx_rounds_session_number"`
	Letter    string     `gorm:"size:1;not null"`
	StartedAt time.Time  `gorm:"not null"`
	EndedAt   *time.Time `gorm:""`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
	Answers   []Answer
	Scores    []RoundScore
}
