// Package redisstore keeps occurrence records in Redis, one JSON document per
// key, and implements the conditional write with WATCH/MULTI.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
)

// OccurrenceKeyPrefix is the key layout of one occurrence document.
const OccurrenceKeyPrefix = "occurrence:%s:%s"

// Store is a ledger.Store backed by Redis.
type Store struct {
	client redis.UniversalClient
}

// New creates a Redis-backed occurrence store.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func redisKey(key model.OccurrenceKey) string {
	return fmt.Sprintf(OccurrenceKeyPrefix, key.GroupID, key.Date)
}

// GetOccurrence loads one occurrence document.
func (s *Store) GetOccurrence(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get occurrence %s from Redis: %w", key, err)
	}
	return decode(raw)
}

// CreateOccurrence stores occ with SETNX, so only the first creator wins.
func (s *Store) CreateOccurrence(ctx context.Context, occ *model.Occurrence) error {
	now := time.Now().UTC()
	occ.Version = 0
	occ.CreatedAt = now
	occ.UpdatedAt = now

	data, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("failed to encode occurrence %s: %w", occ.Key(), err)
	}
	ok, err := s.client.SetNX(ctx, redisKey(occ.Key()), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create occurrence %s in Redis: %w", occ.Key(), err)
	}
	if !ok {
		return ledger.ErrConflict
	}
	return nil
}

// SwapOccurrence watches the key, checks the stored version and writes occ
// inside MULTI/EXEC. A concurrent write to the key aborts EXEC.
func (s *Store) SwapOccurrence(ctx context.Context, occ *model.Occurrence, expected int64) error {
	key := redisKey(occ.Key())
	next := *occ
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode occurrence %s: %w", occ.Key(), err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ledger.ErrConflict
		}
		if err != nil {
			return err
		}
		current, err := decode(raw)
		if err != nil {
			return err
		}
		if current.Version != expected {
			return ledger.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ledger.ErrConflict
	}
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to swap occurrence %s in Redis: %w", occ.Key(), err)
	}

	occ.Version = next.Version
	occ.UpdatedAt = next.UpdatedAt
	return nil
}

func decode(raw []byte) (*model.Occurrence, error) {
	var occ model.Occurrence
	if err := json.Unmarshal(raw, &occ); err != nil {
		return nil, fmt.Errorf("failed to decode occurrence document: %w", err)
	}
	return &occ, nil
}
