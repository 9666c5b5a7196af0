// Package roster admits and removes participants from an occurrence's
// limited set of slots.
package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
)

// Outcome is the result of a confirmation request. Rejections are ordinary
// outcomes, not errors.
type Outcome string

const (
	Admitted               Outcome = "admitted"
	RejectedAlreadyPresent Outcome = "already_present"
	RejectedFull           Outcome = "full"
)

// Service runs confirmation and withdrawal against the ledger.
type Service struct {
	ledger *ledger.Ledger
}

// NewService creates a roster service.
func NewService(l *ledger.Ledger) *Service {
	return &Service{ledger: l}
}

// Defaults describe the occurrence a confirmation creates when none exists
// yet, normally taken from the owning group.
type Defaults struct {
	Capacity      int
	VotingEnabled bool
}

// Confirm claims a slot for participantID. Capacity is always taken from the
// stored record; defaults are used only when the record does not exist yet
// and this call creates it. A zero default capacity never creates a record.
func (s *Service) Confirm(ctx context.Context, key model.OccurrenceKey, participantID string, defaults Defaults) (Outcome, error) {
	if participantID == "" {
		return "", fmt.Errorf("participant id is required")
	}

	var outcome Outcome
	seed := func() *model.Occurrence {
		return model.NewOccurrence(key, defaults.Capacity, defaults.VotingEnabled)
	}
	_, err := s.ledger.UpdateOrCreate(ctx, key, seed, func(occ *model.Occurrence) (bool, error) {
		// Decided afresh on every attempt.
		outcome = admit(occ, participantID)
		return outcome == Admitted, nil
	})
	if err != nil {
		return "", err
	}

	logger.Infof("roster: %s confirm %s: %s", key, participantID, outcome)
	return outcome, nil
}

func admit(occ *model.Occurrence, participantID string) Outcome {
	if occ.HasOccupant(participantID) {
		return RejectedAlreadyPresent
	}
	if len(occ.Occupants) >= occ.Capacity {
		return RejectedFull
	}
	occ.Occupants = append(occ.Occupants, participantID)
	return Admitted
}

// Withdraw removes participantID from the roster if present. A missing record
// or participant is not an error.
func (s *Service) Withdraw(ctx context.Context, key model.OccurrenceKey, participantID string) error {
	_, err := s.ledger.Update(ctx, key, func(occ *model.Occurrence) (bool, error) {
		kept := occ.Occupants[:0]
		for _, p := range occ.Occupants {
			if p != participantID {
				kept = append(kept, p)
			}
		}
		removed := len(kept) != len(occ.Occupants)
		occ.Occupants = kept
		return removed, nil
	})
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Infof("roster: %s withdraw %s", key, participantID)
	return nil
}
