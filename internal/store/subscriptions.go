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

// SaveSubscription upserts the browser keys of sub and replaces the set of
// groups it follows. Unknown group ids are ignored.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, groupIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Groups").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}

		groups := []*model.Group{}
		if len(groupIDs) > 0 {
			if err := tx.Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
				return fmt.Errorf("failed to resolve subscribed groups: %w", err)
			}
		}
		if err := tx.Model(sub).Association("Groups").Replace(&groups); err != nil {
			return fmt.Errorf("failed to link subscribed groups: %w", err)
		}
		sub.Groups = groups
		return nil
	})
}

// DeleteSubscription forgets an endpoint and its group links. Deleting an
// unknown endpoint is not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Groups").Clear(); err != nil {
			return fmt.Errorf("failed to unlink subscription: %w", err)
		}
		if err := tx.Delete(&sub).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// GetSubscription loads an endpoint together with the groups it follows.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Groups").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}
