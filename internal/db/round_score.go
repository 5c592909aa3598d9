package db

import "time"

type RoundScore struct {
	ID          uint      `gorm:"primaryKey"`
	RoundID     uint      `gorm:"index;not null;uniqueIndex:idx_round_scores_round_player"`
	PlayerID    string    `gorm:"size:64;not null;uniqueIndex:idx_round_scores_round_player"`
	TotalPoints int       `gorm:"not null"`
	IsWinner    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}
