package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
)

// CreateGroup inserts a new group. A group with the same id yields ErrExists.
func (s *gormStore) CreateGroup(ctx context.Context, group *model.Group) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(group)
	if res.Error != nil {
		return fmt.Errorf("failed to create group %s: %w", group.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrExists
	}
	return nil
}

// GetGroup loads one group.
func (s *gormStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", id, err)
	}
	return &group, nil
}

// ActiveGroups lists the groups the scheduler should consider.
func (s *gormStore) ActiveGroups(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}
