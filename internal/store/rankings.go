package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
)

// maxSeqProbe bounds how many sequence numbers are tried for one date before
// the whole publish is retried.
const maxSeqProbe = 8

// ApplyRanking stores the round snapshot of an occurrence and merges its
// entries into the annual ranking, all in one transaction guarded by a
// RankingMark. A second call for the same occurrence returns
// ledger.ErrAlreadyApplied; a lost race on the annual row returns
// ledger.ErrConflict and leaves nothing behind.
func (s *gormStore) ApplyRanking(ctx context.Context, key model.OccurrenceKey, entries []model.RankingEntry, merge MergeFunc) (*model.RoundRanking, error) {
	now := time.Now().UTC()
	year := key.Year()
	if year == 0 {
		return nil, fmt.Errorf("occurrence %s has a malformed date", key)
	}

	var round *model.RoundRanking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := allocateRound(tx, key, entries, now)
		if err != nil {
			return err
		}

		mark := model.RankingMark{
			GroupID:   key.GroupID,
			Date:      key.Date,
			Year:      year,
			Seq:       r.Seq,
			CreatedAt: now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mark)
		if res.Error != nil {
			return fmt.Errorf("failed to mark ranking for %s: %w", key, res.Error)
		}
		if res.RowsAffected == 0 {
			return ledger.ErrAlreadyApplied
		}

		if err := mergeAnnual(tx, year, entries, merge, now); err != nil {
			return err
		}
		round = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

// allocateRound counts the rounds already saved for the date and claims the
// next free sequence number. The (date, seq) primary key turns a concurrent
// claim of the same number into a skipped insert, so the next one is tried.
func allocateRound(tx *gorm.DB, key model.OccurrenceKey, entries []model.RankingEntry, now time.Time) (*model.RoundRanking, error) {
	var count int64
	if err := tx.Model(&model.RoundRanking{}).Where(map[string]any{"date": key.Date}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count rounds on %s: %w", key.Date, err)
	}

	for seq := int(count) + 1; seq <= int(count)+maxSeqProbe; seq++ {
		round := model.RoundRanking{
			Date:      key.Date,
			Seq:       seq,
			GroupID:   key.GroupID,
			Entries:   datatypes.JSONSlice[model.RankingEntry](entries),
			CreatedAt: now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&round)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to save round %s/%d: %w", key.Date, seq, res.Error)
		}
		if res.RowsAffected == 1 {
			return &round, nil
		}
	}
	return nil, ledger.ErrConflict
}

func mergeAnnual(tx *gorm.DB, year int, entries []model.RankingEntry, merge MergeFunc, now time.Time) error {
	var annual model.AnnualRanking
	err := tx.Where(map[string]any{"year": year}).First(&annual).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		annual = model.AnnualRanking{
			Year:      year,
			Entries:   datatypes.JSONSlice[model.RankingEntry](merge(nil, entries)),
			Version:   1,
			UpdatedAt: now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&annual)
		if res.Error != nil {
			return fmt.Errorf("failed to create annual ranking %d: %w", year, res.Error)
		}
		if res.RowsAffected == 0 {
			return ledger.ErrConflict
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load annual ranking %d: %w", year, err)
	}

	merged := merge(annual.Entries, entries)
	res := tx.Model(&model.AnnualRanking{}).
		Where(map[string]any{"year": year, "version": annual.Version}).
		Updates(map[string]any{
			"entries":    datatypes.JSONSlice[model.RankingEntry](merged),
			"version":    annual.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update annual ranking %d: %w", year, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// RoundRankings returns every round saved for a date, in sequence order.
func (s *gormStore) RoundRankings(ctx context.Context, date string) ([]model.RoundRanking, error) {
	var rounds []model.RoundRanking
	err := s.db.WithContext(ctx).
		Where(map[string]any{"date": date}).
		Order("seq").
		Find(&rounds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds on %s: %w", date, err)
	}
	return rounds, nil
}

// AnnualRanking loads the cumulative ranking of a year.
func (s *gormStore) AnnualRanking(ctx context.Context, year int) (*model.AnnualRanking, error) {
	var annual model.AnnualRanking
	err := s.db.WithContext(ctx).Where(map[string]any{"year": year}).First(&annual).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load annual ranking %d: %w", year, err)
	}
	return &annual, nil
}
