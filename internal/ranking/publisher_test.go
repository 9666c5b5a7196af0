package ranking_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"matchday-backend/internal/db"
	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
	"matchday-backend/internal/ranking"
	"matchday-backend/internal/store"
)

func newPublisher(t *testing.T) (store.Store, *ranking.Publisher) {
	t.Helper()
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	s := store.NewGormStore(gdb)
	return s, ranking.NewPublisher(s, ledger.New(s, 0))
}

func closed(group, date string, stats map[string]model.PlayerStats, occupants ...string) *model.Occurrence {
	occ := model.NewOccurrence(model.OccurrenceKey{GroupID: group, Date: date}, 10, false)
	occ.Status = model.StatusClosed
	occ.Occupants = datatypes.JSONSlice[string](occupants)
	occ.Stats = datatypes.NewJSONType(stats)
	return occ
}

func TestPublishRejectsOpenMatches(t *testing.T) {
	_, p := newPublisher(t)
	ctx := context.Background()

	live := closed("g", "2024-04-01", nil, "x")
	live.Status = model.StatusLive
	_, err := p.Publish(ctx, live)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	pending := closed("g", "2024-04-01", nil, "x")
	pending.Voting = datatypes.NewJSONType(model.Voting{Enabled: true, Open: true, Ballots: map[string]model.Ballot{}})
	_, err = p.Publish(ctx, pending)
	assert.ErrorIs(t, err, ledger.ErrInvalidState, "voting must finish first")
}

func TestPublishOncePerOccurrence(t *testing.T) {
	s, p := newPublisher(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertPlayer(ctx, &model.Player{ID: "x", Name: "Xavier"}))
	require.NoError(t, s.UpsertPlayer(ctx, &model.Player{ID: "g1", Name: "Guest", Guest: true}))

	occ := closed("monday", "2024-04-01", map[string]model.PlayerStats{
		"x":  {Goals: 2},
		"g1": {Goals: 1},
	}, "x", "g1", "y")

	round, err := p.Publish(ctx, occ)
	require.NoError(t, err)
	assert.Equal(t, "occurrence-1", round.Label())
	assert.Equal(t, "monday", round.GroupID)

	_, err = p.Publish(ctx, occ)
	assert.ErrorIs(t, err, ledger.ErrAlreadyApplied)

	annual, err := p.Annual(ctx, 2024, ranking.MetricScore)
	require.NoError(t, err)
	assert.Equal(t, []model.RankingEntry{
		{ParticipantID: "x", Name: "Xavier", Score: 20, Goals: 2},
		{ParticipantID: "y", Name: "y", Score: 0},
	}, []model.RankingEntry(annual.Entries))
	assert.Equal(t, int64(1), annual.Version)

	rounds, err := p.Rounds(ctx, "2024-04-01", ranking.MetricScore)
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
}

func TestPublishSameDateGetsSequence(t *testing.T) {
	_, p := newPublisher(t)
	ctx := context.Background()

	_, err := p.Publish(ctx, closed("early", "2024-04-06", map[string]model.PlayerStats{"x": {Goals: 1}}, "x"))
	require.NoError(t, err)
	second, err := p.Publish(ctx, closed("late", "2024-04-06", map[string]model.PlayerStats{"x": {Assists: 1}}, "x"))
	require.NoError(t, err)
	assert.Equal(t, "occurrence-2", second.Label())

	rounds, err := p.Rounds(ctx, "2024-04-06", ranking.MetricGoals)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, "early", rounds[0].GroupID)
	assert.Len(t, rounds[0].Entries, 1)
	assert.Empty(t, rounds[1].Entries, "no goals in the second round")

	annual, err := p.Annual(ctx, 2024, ranking.MetricScore)
	require.NoError(t, err)
	require.Len(t, annual.Entries, 1)
	assert.Equal(t, model.RankingEntry{ParticipantID: "x", Name: "x", Score: 15, Goals: 1, Assists: 1}, annual.Entries[0])
	assert.Equal(t, int64(2), annual.Version)
}

func TestConcurrentPublishMergesEveryRound(t *testing.T) {
	_, p := newPublisher(t)
	ctx := context.Background()

	groups := []string{"a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	for _, g := range groups {
		wg.Add(1)
		go func(g string) {
			defer wg.Done()
			_, err := p.Publish(ctx, closed(g, "2024-05-01", map[string]model.PlayerStats{"x": {Goals: 1}}, "x"))
			assert.NoError(t, err)
		}(g)
	}
	wg.Wait()

	annual, err := p.Annual(ctx, 2024, ranking.MetricGoals)
	require.NoError(t, err)
	require.Len(t, annual.Entries, 1)
	assert.Equal(t, len(groups), annual.Entries[0].Goals)

	rounds, err := p.Rounds(ctx, "2024-05-01", ranking.MetricScore)
	require.NoError(t, err)
	assert.Len(t, rounds, len(groups))
}

func TestAnnualMissing(t *testing.T) {
	_, p := newPublisher(t)
	_, err := p.Annual(context.Background(), 1999, ranking.MetricScore)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
