package model

import "time"

// Player is a known participant and their lifetime achievement counters.
type Player struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Guest       bool      `gorm:"not null" json:"guest"`
	BestAwards  int       `gorm:"not null" json:"best_awards"`
	WorstAwards int       `gorm:"not null" json:"worst_awards"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ranked reports whether the participant belongs on leaderboards.
func (p Player) Ranked() bool {
	return !p.Guest && p.ID != EmptySlotID
}

// Award names a lifetime achievement counter.
type Award string

const (
	AwardBest  Award = "best"
	AwardWorst Award = "worst"
)

// AwardMark records that an award from one occurrence was already counted.
type AwardMark struct {
	GroupID   string    `gorm:"primaryKey;size:64"`
	Date      string    `gorm:"primaryKey;size:10"`
	Award     Award     `gorm:"primaryKey;size:16"`
	PlayerID  string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
