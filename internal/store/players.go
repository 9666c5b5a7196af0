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

// UpsertPlayer creates the player or updates its name and guest flag.
// Award counters are never touched here.
func (s *gormStore) UpsertPlayer(ctx context.Context, player *model.Player) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "guest", "updated_at"}),
	}).Create(player).Error
	if err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", player.ID, err)
	}
	return nil
}

// GetPlayer loads one player.
func (s *gormStore) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	var player model.Player
	err := s.db.WithContext(ctx).First(&player, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", id, err)
	}
	return &player, nil
}

// Players returns the known players among ids, keyed by id.
func (s *gormStore) Players(ctx context.Context, ids []string) (map[string]model.Player, error) {
	players := make(map[string]model.Player, len(ids))
	if len(ids) == 0 {
		return players, nil
	}
	var rows []model.Player
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	for _, p := range rows {
		players[p.ID] = p
	}
	return players, nil
}

// ApplyAward increments a player's lifetime award counter once per
// occurrence and award. The marker insert and the increment share a transaction.
func (s *gormStore) ApplyAward(ctx context.Context, key model.OccurrenceKey, award model.Award, playerID string) error {
	var column string
	switch award {
	case model.AwardBest:
		column = "best_awards"
	case model.AwardWorst:
		column = "worst_awards"
	default:
		return fmt.Errorf("unknown award %q", award)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mark := model.AwardMark{
			GroupID:   key.GroupID,
			Date:      key.Date,
			Award:     award,
			PlayerID:  playerID,
			CreatedAt: time.Now().UTC(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mark)
		if res.Error != nil {
			return fmt.Errorf("failed to mark %s award for %s: %w", award, key, res.Error)
		}
		if res.RowsAffected == 0 {
			return ledger.ErrAlreadyApplied
		}

		player := model.Player{ID: playerID, Name: playerID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&player).Error; err != nil {
			return fmt.Errorf("failed to ensure player %s: %w", playerID, err)
		}
		if err := tx.Model(&model.Player{}).
			Where("id = ?", playerID).
			Update(column, gorm.Expr(column+" + 1")).Error; err != nil {
			return fmt.Errorf("failed to increment %s for player %s: %w", column, playerID, err)
		}
		return nil
	})
}
