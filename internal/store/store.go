package store

import (
	"context"

	"gorm.io/gorm"

	"matchday-backend/internal/model"
)

// MergeFunc folds a batch of round entries into existing annual entries.
type MergeFunc func(existing, incoming []model.RankingEntry) []model.RankingEntry

// Store defines the interface for all database operations.
type Store interface {
	GetOccurrence(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error)
	CreateOccurrence(ctx context.Context, occ *model.Occurrence) error
	SwapOccurrence(ctx context.Context, occ *model.Occurrence, expected int64) error
	ListOccurrences(ctx context.Context, groupID string, limit int) ([]model.Occurrence, error)

	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, id string) (*model.Group, error)
	ActiveGroups(ctx context.Context) ([]model.Group, error)

	UpsertPlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	Players(ctx context.Context, ids []string) (map[string]model.Player, error)
	ApplyAward(ctx context.Context, key model.OccurrenceKey, award model.Award, playerID string) error

	ApplyRanking(ctx context.Context, key model.OccurrenceKey, entries []model.RankingEntry, merge MergeFunc) (*model.RoundRanking, error)
	RoundRankings(ctx context.Context, date string) ([]model.RoundRanking, error)
	AnnualRanking(ctx context.Context, year int) (*model.AnnualRanking, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription, groupIDs []string) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}
