package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
)

func keyConds(key model.OccurrenceKey) map[string]any {
	return map[string]any{"group_id": key.GroupID, "date": key.Date}
}

// GetOccurrence loads one occurrence record.
func (s *gormStore) GetOccurrence(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	var occ model.Occurrence
	err := s.db.WithContext(ctx).Where(keyConds(key)).First(&occ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load occurrence %s: %w", key, err)
	}
	return &occ, nil
}

// CreateOccurrence inserts occ unless a record with the same key exists.
func (s *gormStore) CreateOccurrence(ctx context.Context, occ *model.Occurrence) error {
	occ.Version = 0
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(occ)
	if res.Error != nil {
		return fmt.Errorf("failed to create occurrence %s: %w", occ.Key(), res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// SwapOccurrence is the conditional write: the UPDATE only matches while the
// stored version equals expected.
func (s *gormStore) SwapOccurrence(ctx context.Context, occ *model.Occurrence, expected int64) error {
	now := time.Now().UTC()
	conds := keyConds(occ.Key())
	conds["version"] = expected

	res := s.db.WithContext(ctx).
		Model(&model.Occurrence{}).
		Where(conds).
		Updates(map[string]any{
			"capacity":      occ.Capacity,
			"status":        string(occ.Status),
			"occupants":     occ.Occupants,
			"events":        occ.Events,
			"stats":         occ.Stats,
			"voting":        occ.Voting,
			"voting_result": occ.VotingResult,
			"version":       expected + 1,
			"updated_at":    now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update occurrence %s: %w", occ.Key(), res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrConflict
	}
	occ.Version = expected + 1
	occ.UpdatedAt = now
	return nil
}

// ListOccurrences returns the most recent occurrences of a group.
func (s *gormStore) ListOccurrences(ctx context.Context, groupID string, limit int) ([]model.Occurrence, error) {
	if limit <= 0 {
		limit = 20
	}
	var occs []model.Occurrence
	err := s.db.WithContext(ctx).
		Where(map[string]any{"group_id": groupID}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true}).
		Limit(limit).
		Find(&occs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences for group %s: %w", groupID, err)
	}
	return occs, nil
}
