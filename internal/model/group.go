package model

import "time"

// Group is a recurring meetup. The scheduler creates one occurrence per
// matching weekday.
type Group struct {
	ID            string       `gorm:"primaryKey;size:64" json:"id"`
	Name          string       `gorm:"size:128;not null" json:"name"`
	Weekday       time.Weekday `gorm:"not null" json:"weekday"`
	Capacity      int          `gorm:"not null" json:"capacity"`
	VotingEnabled bool         `gorm:"not null" json:"voting_enabled"`
	Active        bool         `gorm:"not null;index" json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
