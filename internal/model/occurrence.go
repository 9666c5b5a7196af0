package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the calendar date format used in occurrence keys.
const DateLayout = "2006-01-02"

// EmptySlotID is the placeholder participant used to hold an open roster slot.
const EmptySlotID = "empty-slot"

// Status is the lifecycle state of an occurrence.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusClosed    Status = "closed"
)

// EventKind classifies a recorded match event.
type EventKind string

const (
	EventGoal   EventKind = "goal"
	EventAssist EventKind = "assist"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	return k == EventGoal || k == EventAssist
}

// OccurrenceKey identifies one occurrence: a group's meetup on a given date.
type OccurrenceKey struct {
	GroupID string `json:"group_id"`
	Date    string `json:"date"`
}

func (k OccurrenceKey) String() string {
	return fmt.Sprintf("%s/%s", k.GroupID, k.Date)
}

// Year returns the calendar year of the key's date, or 0 if the date is malformed.
func (k OccurrenceKey) Year() int {
	t, err := time.Parse(DateLayout, k.Date)
	if err != nil {
		return 0
	}
	return t.Year()
}

// Event is one goal or assist recorded while the match is live.
type Event struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	Kind          EventKind `json:"kind"`
	At            time.Time `json:"at"`
}

// PlayerStats holds the per-participant totals derived from events.
type PlayerStats struct {
	Goals   int `json:"goals"`
	Assists int `json:"assists"`
}

// Ballot is one voter's pair of picks.
type Ballot struct {
	Best  string `json:"best"`
	Worst string `json:"worst"`
}

// Voting holds the post-match voting state.
type Voting struct {
	Enabled bool              `json:"enabled"`
	Open    bool              `json:"open"`
	Ballots map[string]Ballot `json:"ballots"`
}

// AwardResult is the resolved winner of one award.
type AwardResult struct {
	Winner string         `json:"winner"`
	Votes  int            `json:"votes"`
	Tally  map[string]int `json:"tally"`
}

// VotingResult is written once when voting closes.
type VotingResult struct {
	Best     AwardResult `json:"best"`
	Worst    AwardResult `json:"worst"`
	ClosedAt time.Time   `json:"closed_at"`
}

// Occurrence is the persisted ledger record of one scheduled meetup.
// Version is bumped on every committed write and fences concurrent updates.
type Occurrence struct {
	GroupID      string                                     `gorm:"primaryKey;size:64" json:"group_id"`
	Date         string                                     `gorm:"primaryKey;size:10" json:"date"`
	Capacity     int                                        `gorm:"not null" json:"capacity"`
	Status       Status                                     `gorm:"size:16;not null;index" json:"status"`
	Occupants    datatypes.JSONSlice[string]                `gorm:"not null" json:"occupants"`
	Events       datatypes.JSONSlice[Event]                 `gorm:"not null" json:"events"`
	Stats        datatypes.JSONType[map[string]PlayerStats] `gorm:"not null" json:"stats"`
	Voting       datatypes.JSONType[Voting]                 `gorm:"not null" json:"voting"`
	VotingResult datatypes.JSONType[*VotingResult]          `gorm:"not null" json:"voting_result"`
	Version      int64                                      `gorm:"not null" json:"version"`
	CreatedAt    time.Time                                  `json:"created_at"`
	UpdatedAt    time.Time                                  `json:"updated_at"`
}

// NewOccurrence returns a scheduled occurrence with an empty roster.
func NewOccurrence(key OccurrenceKey, capacity int, votingEnabled bool) *Occurrence {
	return &Occurrence{
		GroupID:      key.GroupID,
		Date:         key.Date,
		Capacity:     capacity,
		Status:       StatusScheduled,
		Occupants:    datatypes.JSONSlice[string]{},
		Events:       datatypes.JSONSlice[Event]{},
		Stats:        datatypes.NewJSONType(map[string]PlayerStats{}),
		Voting:       datatypes.NewJSONType(Voting{Enabled: votingEnabled, Ballots: map[string]Ballot{}}),
		VotingResult: datatypes.NewJSONType[*VotingResult](nil),
	}
}

// Key returns the occurrence's composite key.
func (o *Occurrence) Key() OccurrenceKey {
	return OccurrenceKey{GroupID: o.GroupID, Date: o.Date}
}

// HasOccupant reports whether id holds a slot.
func (o *Occurrence) HasOccupant(id string) bool {
	for _, p := range o.Occupants {
		if p == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so a mutation attempt never leaks into a retried read.
func (o *Occurrence) Clone() *Occurrence {
	c := *o
	c.Occupants = append(datatypes.JSONSlice[string]{}, o.Occupants...)
	c.Events = append(datatypes.JSONSlice[Event]{}, o.Events...)

	stats := make(map[string]PlayerStats, len(o.Stats.Data()))
	for k, v := range o.Stats.Data() {
		stats[k] = v
	}
	c.Stats = datatypes.NewJSONType(stats)

	v := o.Voting.Data()
	ballots := make(map[string]Ballot, len(v.Ballots))
	for k, b := range v.Ballots {
		ballots[k] = b
	}
	v.Ballots = ballots
	c.Voting = datatypes.NewJSONType(v)

	if r := o.VotingResult.Data(); r != nil {
		rc := *r
		c.VotingResult = datatypes.NewJSONType(&rc)
	}
	return &c
}
