package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// RankingEntry is one participant's line on a leaderboard.
type RankingEntry struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Goals         int    `json:"goals"`
	Assists       int    `json:"assists"`
}

// RoundRanking is the snapshot of one occurrence. Several occurrences on the
// same date are numbered by Seq.
type RoundRanking struct {
	Date      string                            `gorm:"primaryKey;size:10" json:"date"`
	Seq       int                               `gorm:"primaryKey;autoIncrement:false" json:"seq"`
	GroupID   string                            `gorm:"size:64;not null;index" json:"group_id"`
	Entries   datatypes.JSONSlice[RankingEntry] `gorm:"not null" json:"entries"`
	CreatedAt time.Time                         `json:"created_at"`
}

// Label returns the sub-key name of the round within its date.
func (r RoundRanking) Label() string {
	return fmt.Sprintf("occurrence-%d", r.Seq)
}

// AnnualRanking accumulates every published round within a calendar year.
type AnnualRanking struct {
	Year      int                               `gorm:"primaryKey;autoIncrement:false" json:"year"`
	Entries   datatypes.JSONSlice[RankingEntry] `gorm:"not null" json:"entries"`
	Version   int64                             `gorm:"not null" json:"version"`
	UpdatedAt time.Time                         `json:"updated_at"`
}

// RankingMark records that an occurrence was already merged into rankings.
type RankingMark struct {
	GroupID   string    `gorm:"primaryKey;size:64"`
	Date      string    `gorm:"primaryKey;size:10"`
	Year      int       `gorm:"not null"`
	Seq       int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
