package db

import "time"

type Answer struct {
	ID            uint      `gorm:"primaryKey"`
	RoundID       uint      `gorm:"index;not null;uniqueIndex:idx_answers_round_player_category"`
	PlayerID      string    `gorm:"size:64;not null;uniqueIndex:idx_answers_round_player_category"`
	Category      string    `gorm:"size:64;not null;uniqueIndex:idx_answers_round_player_category"`
	Text          string    `gorm:"size:140;not null"`
	ValidVotes    int       `gorm:"not null;default:0"`
	InvalidVotes  int       `gorm:"not null;default:0"`
	SharedVotes   int       `gorm:"not null;default:0"`
	PointsAwarded int       `gorm:"not null;default:0"`
	IsUnique      bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}
