package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"matchday-backend/internal/model"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 50, Score(2, 1, 0))
	assert.Equal(t, 45, Score(2, 0, 1))
	assert.Equal(t, 0, Score(0, 0, 0))
	assert.Equal(t, 35, Score(1, 1, 1))
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{"": MetricScore, "score": MetricScore, "goals": MetricGoals, "assists": MetricAssists} {
		got, ok := ParseMetric(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseMetric("saves")
	assert.False(t, ok)
}

func closedOccurrence() *model.Occurrence {
	occ := model.NewOccurrence(model.OccurrenceKey{GroupID: "g", Date: "2024-02-01"}, 6, true)
	occ.Status = model.StatusClosed
	occ.Occupants = datatypes.JSONSlice[string]{"x", "guest-1", model.EmptySlotID, "y", "w"}
	occ.Stats = datatypes.NewJSONType(map[string]model.PlayerStats{
		"x":       {Goals: 1},
		"y":       {Assists: 1},
		"guest-1": {Goals: 3},
		"late":    {Goals: 1},
	})
	return occ
}

func TestBuild(t *testing.T) {
	occ := closedOccurrence()
	votes := map[string]int{"x": 2, "y": 2, "guest-1": 1}
	players := map[string]model.Player{
		"x":       {ID: "x", Name: "Xavier"},
		"y":       {ID: "y", Name: "Yuri"},
		"guest-1": {ID: "guest-1", Name: "Friend of X", Guest: true},
	}

	entries := Build(occ, votes, players)

	assert.Equal(t, []model.RankingEntry{
		{ParticipantID: "x", Name: "Xavier", Score: 50, Goals: 1},
		{ParticipantID: "y", Name: "Yuri", Score: 45, Assists: 1},
		{ParticipantID: "late", Name: "late", Score: 10, Goals: 1},
		{ParticipantID: "w", Name: "w", Score: 0},
	}, entries)
}

func TestLeaderboard(t *testing.T) {
	entries := []model.RankingEntry{
		{ParticipantID: "a", Score: 10, Goals: 1},
		{ParticipantID: "b", Score: 30, Assists: 2},
		{ParticipantID: "c", Score: 10, Goals: 1},
		{ParticipantID: "d", Score: 20, Goals: 0, Assists: 0},
	}

	byScore := Leaderboard(entries, MetricScore)
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(byScore))

	byGoals := Leaderboard(entries, MetricGoals)
	assert.Equal(t, []string{"a", "c"}, ids(byGoals), "ties keep input order, zero rows dropped")

	byAssists := Leaderboard(entries, MetricAssists)
	assert.Equal(t, []string{"b"}, ids(byAssists))

	// The input is left untouched.
	assert.Equal(t, "a", entries[0].ParticipantID)
}

func TestMerge(t *testing.T) {
	existing := []model.RankingEntry{
		{ParticipantID: "x", Name: "X", Score: 50, Goals: 1},
		{ParticipantID: "z", Name: "Z", Score: 20},
	}
	incoming := []model.RankingEntry{
		{ParticipantID: "x", Name: "Xavier", Score: 30, Goals: 2, Assists: 1},
		{ParticipantID: "y", Name: "Y", Score: 45, Assists: 1},
	}

	merged := Merge(existing, incoming)
	assert.Equal(t, []model.RankingEntry{
		{ParticipantID: "x", Name: "Xavier", Score: 80, Goals: 3, Assists: 1},
		{ParticipantID: "y", Name: "Y", Score: 45, Assists: 1},
		{ParticipantID: "z", Name: "Z", Score: 20},
	}, merged)

	assert.Equal(t, Leaderboard(incoming, MetricScore), Merge(nil, incoming))
}

func TestMergeAssociative(t *testing.T) {
	a := []model.RankingEntry{{ParticipantID: "p1", Score: 20, Goals: 1}, {ParticipantID: "p2", Score: 5, Assists: 1}}
	b := []model.RankingEntry{{ParticipantID: "p2", Score: 40, Goals: 2}, {ParticipantID: "p3", Score: 10}}
	c := []model.RankingEntry{{ParticipantID: "p1", Score: 15, Assists: 3}, {ParticipantID: "p3", Score: 25, Goals: 1}}

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))
	assert.ElementsMatch(t, left, right)

	totals := map[string]int{}
	for _, e := range left {
		totals[e.ParticipantID] = e.Score
	}
	assert.Equal(t, map[string]int{"p1": 35, "p2": 45, "p3": 35}, totals)
}

func TestVotesReceived(t *testing.T) {
	got := VotesReceived(map[string]model.Ballot{
		"x": {Best: "x", Worst: "y"},
		"y": {Best: "x", Worst: "y"},
	})
	assert.Equal(t, map[string]int{"x": 2, "y": 2}, got)
}

func ids(entries []model.RankingEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ParticipantID
	}
	return out
}
