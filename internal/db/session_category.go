package db

import "time"

type SessionCategory struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"index;not null;uniqueIndex:idx_categories_session_position"`
	Name      string    `gorm:"size:64;not null"`
	Position  int       `gorm:"not null;uniqueIndex:idx_categories_session_position"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
