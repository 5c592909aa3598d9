package db

import "time"

type Session struct {
	ID              uint      `gorm:"primaryKey"`
	SessionID       string    `gorm:"size:36;uniqueIndex;not null"`
	RoomCode        string    `gorm:"size:12;uniqueIndex;not null"`
	HostID          string    `gorm:"size:64;not null"`
	TotalRounds     int       `gorm:"not null"`
	RoundDuration   int       `gorm:"not null"`
	AllowedLetters  string    `gorm:"size:64;not null"`
	CurrentRound    int       `gorm:"not null;default:0"`
	OverallTimeLeft int       `gorm:"not null"`
	Status          string    `gorm:"size:16;not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
	Categories      []SessionCategory
	Rounds          []Round
	Events          []Event
}
