package match_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchday-backend/internal/db"
	"matchday-backend/internal/ledger"
	"matchday-backend/internal/match"
	"matchday-backend/internal/model"
	"matchday-backend/internal/ranking"
	"matchday-backend/internal/roster"
	"matchday-backend/internal/stats"
	"matchday-backend/internal/store"
	"matchday-backend/internal/voting"
)

type recordingAnnouncer struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (r *recordingAnnouncer) Announce(groupID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[groupID] = append(r.messages[groupID], message)
}

func newService(t *testing.T) (*match.Service, store.Store, *recordingAnnouncer) {
	t.Helper()
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)

	s := store.NewGormStore(gdb)
	l := ledger.New(s, 0)
	ann := &recordingAnnouncer{messages: map[string][]string{}}
	svc := match.NewService(l, roster.NewService(l), stats.NewRecorder(l), voting.NewService(l, s), ranking.NewPublisher(s, l), ann)
	return svc, s, ann
}

func TestCreateValidatesCapacity(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), model.OccurrenceKey{GroupID: "g", Date: "2024-01-01"}, 0, false)
	assert.Error(t, err)
}

func TestScheduleAnnouncesOnlyNewOccurrences(t *testing.T) {
	svc, _, ann := newService(t)
	ctx := context.Background()
	group := model.Group{ID: "quinta", Name: "Quinta", Weekday: time.Thursday, Capacity: 14, VotingEnabled: true}

	created, err := svc.Schedule(ctx, group, "2024-06-13")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Schedule(ctx, group, "2024-06-13")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Len(t, ann.messages["quinta"], 1)

	occ, err := svc.Get(ctx, model.OccurrenceKey{GroupID: "quinta", Date: "2024-06-13"})
	require.NoError(t, err)
	assert.Equal(t, 14, occ.Capacity)
	assert.True(t, occ.Voting.Data().Enabled)
}

func TestCloseWithoutVotingPublishes(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	key := model.OccurrenceKey{GroupID: "solo", Date: "2024-06-14"}

	_, err := svc.Create(ctx, key, 4, false)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, key, "x", roster.Defaults{})
	require.NoError(t, err)
	_, err = svc.Start(ctx, key)
	require.NoError(t, err)
	_, err = svc.RecordEvent(ctx, key, "x", model.EventGoal)
	require.NoError(t, err)

	occ, err := svc.Close(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, occ.Status)

	// A repeated close neither fails nor double counts.
	_, err = svc.Close(ctx, key)
	require.NoError(t, err)

	annual, err := s.AnnualRanking(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, annual.Entries, 1)
	assert.Equal(t, 10, annual.Entries[0].Score)
}

func TestCloseOpensVotingAndCloseVotingPublishes(t *testing.T) {
	svc, s, ann := newService(t)
	ctx := context.Background()
	key := model.OccurrenceKey{GroupID: "duo", Date: "2024-06-15"}

	_, err := svc.Create(ctx, key, 3, true)
	require.NoError(t, err)
	for _, p := range []string{"x", "y", "z"} {
		_, err = svc.Confirm(ctx, key, p, roster.Defaults{})
		require.NoError(t, err)
	}
	_, err = svc.Start(ctx, key)
	require.NoError(t, err)

	occ, err := svc.Close(ctx, key)
	require.NoError(t, err)
	assert.True(t, occ.Voting.Data().Open)

	_, err = s.AnnualRanking(ctx, 2024)
	assert.ErrorIs(t, err, ledger.ErrNotFound, "nothing is ranked before voting closes")

	require.NoError(t, svc.SubmitBallot(ctx, key, "x", model.Ballot{Best: "y", Worst: "z"}))
	require.NoError(t, svc.SubmitBallot(ctx, key, "y", model.Ballot{Best: "x", Worst: "z"}))

	occ, err = svc.CloseVoting(ctx, key)
	require.NoError(t, err)
	result := occ.VotingResult.Data()
	require.NotNil(t, result)
	assert.Equal(t, "x", result.Best.Winner, "x and y tie on votes and quick score; lowest id wins")
	assert.Equal(t, "z", result.Worst.Winner)
	assert.Len(t, ann.messages["duo"], 1)

	// Closing again re-runs nothing.
	_, err = svc.CloseVoting(ctx, key)
	require.NoError(t, err)
	_, err = svc.Close(ctx, key)
	require.NoError(t, err)
	assert.Len(t, ann.messages["duo"], 1)

	annual, err := s.AnnualRanking(ctx, 2024)
	require.NoError(t, err)
	scores := map[string]int{}
	for _, e := range annual.Entries {
		scores[e.ParticipantID] = e.Score
	}
	assert.Equal(t, map[string]int{"x": 20, "y": 20, "z": 40}, scores)
}

func TestFirstConfirmationCarriesGroupVoting(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	key := model.OccurrenceKey{GroupID: "quinta", Date: "2024-06-20"}
	defaults := roster.Defaults{Capacity: 4, VotingEnabled: true}

	for _, p := range []string{"x", "y", "z"} {
		out, err := svc.Confirm(ctx, key, p, defaults)
		require.NoError(t, err)
		require.Equal(t, roster.Admitted, out)
	}
	_, err := svc.Start(ctx, key)
	require.NoError(t, err)

	occ, err := svc.Close(ctx, key)
	require.NoError(t, err)
	assert.True(t, occ.Voting.Data().Open)
	assert.Nil(t, occ.VotingResult.Data())

	require.NoError(t, svc.SubmitBallot(ctx, key, "x", model.Ballot{Best: "y", Worst: "z"}))
	_, err = s.AnnualRanking(ctx, 2024)
	assert.ErrorIs(t, err, ledger.ErrNotFound, "the round waits for the vote")

	occ, err = svc.CloseVoting(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, occ.VotingResult.Data())
	assert.Equal(t, "y", occ.VotingResult.Data().Best.Winner)
}
