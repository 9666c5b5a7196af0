package stats_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchday-backend/internal/db"
	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
	"matchday-backend/internal/stats"
	"matchday-backend/internal/store"
	"matchday-backend/internal/store/redisstore"
)

var key = model.OccurrenceKey{GroupID: "sunday-pelada", Date: "2024-03-10"}

func setup(t *testing.T) (*ledger.Ledger, *stats.Recorder) {
	t.Helper()
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	l := ledger.New(store.NewGormStore(gdb), 0)
	require.NoError(t, l.Create(context.Background(), model.NewOccurrence(key, 10, false)))
	return l, stats.NewRecorder(l)
}

func TestFold(t *testing.T) {
	events := []model.Event{
		{ParticipantID: "x", Kind: model.EventGoal},
		{ParticipantID: "x", Kind: model.EventGoal},
		{ParticipantID: "y", Kind: model.EventAssist},
		{ParticipantID: "x", Kind: model.EventAssist},
		{ParticipantID: "z", Kind: "own_goal"},
	}

	got := stats.Fold(events)
	assert.Equal(t, map[string]model.PlayerStats{
		"x": {Goals: 2, Assists: 1},
		"y": {Assists: 1},
	}, got)
	assert.Empty(t, stats.Fold(nil))
}

func TestLifecycle(t *testing.T) {
	l, rec := setup(t)
	ctx := context.Background()

	_, err := rec.RecordEvent(ctx, key, "x", model.EventGoal)
	assert.ErrorIs(t, err, ledger.ErrInvalidState, "events need a live match")

	_, _, err = rec.Close(ctx, key)
	assert.ErrorIs(t, err, ledger.ErrInvalidState, "a scheduled match cannot close")

	occ, err := rec.Start(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, occ.Status)

	_, err = rec.Start(ctx, key)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	ev, err := rec.RecordEvent(ctx, key, "x", model.EventGoal)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	_, err = rec.RecordEvent(ctx, key, "y", model.EventAssist)
	require.NoError(t, err)

	live, err := l.Get(ctx, key)
	require.NoError(t, err)
	assert.Len(t, live.Events, 2)
	assert.Empty(t, live.Stats.Data(), "stats are only derived on close")

	occ, closed, err := rec.Close(ctx, key)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, model.StatusClosed, occ.Status)
	assert.Equal(t, map[string]model.PlayerStats{
		"x": {Goals: 1},
		"y": {Assists: 1},
	}, occ.Stats.Data())

	_, err = rec.RecordEvent(ctx, key, "x", model.EventGoal)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestCloseIsIdempotent(t *testing.T) {
	l, rec := setup(t)
	ctx := context.Background()

	_, err := rec.Start(ctx, key)
	require.NoError(t, err)
	_, err = rec.RecordEvent(ctx, key, "x", model.EventGoal)
	require.NoError(t, err)

	first, closed, err := rec.Close(ctx, key)
	require.NoError(t, err)
	require.True(t, closed)

	second, closed, err := rec.Close(ctx, key)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, first.Stats.Data(), second.Stats.Data())

	stored, err := l.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.Version, stored.Version)
}

func TestConcurrentCloseFoldsOnce(t *testing.T) {
	const closers = 10

	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	backends := map[string]*ledger.Ledger{
		"sql":   ledger.New(store.NewGormStore(gdb), 0),
		"redis": ledger.New(redisstore.New(rdb), 0),
	}
	for name, l := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, l.Create(ctx, model.NewOccurrence(key, 10, false)))
			rec := stats.NewRecorder(l)

			_, err := rec.Start(ctx, key)
			require.NoError(t, err)
			_, err = rec.RecordEvent(ctx, key, "x", model.EventGoal)
			require.NoError(t, err)
			_, err = rec.RecordEvent(ctx, key, "y", model.EventAssist)
			require.NoError(t, err)
			live, err := l.Get(ctx, key)
			require.NoError(t, err)

			var winners atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < closers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, closed, err := rec.Close(ctx, key)
					assert.NoError(t, err)
					if closed {
						winners.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), winners.Load())
			stored, err := l.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, model.StatusClosed, stored.Status)
			assert.Equal(t, live.Version+1, stored.Version)
			assert.Equal(t, stats.Fold(live.Events), stored.Stats.Data())
		})
	}
}

func TestRecordEventValidation(t *testing.T) {
	_, rec := setup(t)
	ctx := context.Background()
	_, err := rec.Start(ctx, key)
	require.NoError(t, err)

	_, err = rec.RecordEvent(ctx, key, "", model.EventGoal)
	assert.ErrorIs(t, err, ledger.ErrInvalidEvent)

	_, err = rec.RecordEvent(ctx, key, "x", "penalty")
	assert.ErrorIs(t, err, ledger.ErrInvalidEvent)
}
