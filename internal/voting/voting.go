// Package voting runs the post-match best/worst performer ballot.
package voting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"gorm.io/datatypes"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
)

// AwardStore applies lifetime award counters at most once per occurrence.
type AwardStore interface {
	ApplyAward(ctx context.Context, key model.OccurrenceKey, award model.Award, playerID string) error
}

// Service opens, collects and closes voting on an occurrence.
type Service struct {
	ledger *ledger.Ledger
	awards AwardStore
	now    func() time.Time
}

// NewService creates a voting service.
func NewService(l *ledger.Ledger, awards AwardStore) *Service {
	return &Service{ledger: l, awards: awards, now: func() time.Time { return time.Now().UTC() }}
}

// Open starts accepting ballots on a closed occurrence with voting enabled.
func (s *Service) Open(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	return s.ledger.Update(ctx, key, func(occ *model.Occurrence) (bool, error) {
		v := occ.Voting.Data()
		switch {
		case occ.Status != model.StatusClosed:
			return false, fmt.Errorf("%w: voting on %s needs a closed match, got %s", ledger.ErrInvalidState, key, occ.Status)
		case !v.Enabled:
			return false, fmt.Errorf("%w: voting is disabled for %s", ledger.ErrInvalidState, key)
		case occ.VotingResult.Data() != nil:
			return false, fmt.Errorf("%w: voting on %s already finished", ledger.ErrInvalidState, key)
		case v.Open:
			return false, nil
		}
		v.Open = true
		occ.Voting = datatypes.NewJSONType(v)
		return true, nil
	})
}

// SubmitBallot records one voter's picks. Voter and both picks must be on
// the roster.
func (s *Service) SubmitBallot(ctx context.Context, key model.OccurrenceKey, voterID string, ballot model.Ballot) error {
	if ballot.Best == "" || ballot.Worst == "" || ballot.Best == ballot.Worst {
		return fmt.Errorf("%w: pick a different player for each award", ledger.ErrInvalidVote)
	}

	_, err := s.ledger.Update(ctx, key, func(occ *model.Occurrence) (bool, error) {
		v := occ.Voting.Data()
		if !v.Open {
			return false, ledger.ErrVotingClosed
		}
		if !occ.HasOccupant(voterID) {
			return false, fmt.Errorf("%w: %s did not play %s", ledger.ErrNotEligible, voterID, key)
		}
		for _, pick := range []string{ballot.Best, ballot.Worst} {
			if !occ.HasOccupant(pick) {
				return false, fmt.Errorf("%w: %s did not play %s", ledger.ErrInvalidVote, pick, key)
			}
		}
		if _, ok := v.Ballots[voterID]; ok {
			return false, ledger.ErrAlreadyVoted
		}
		v.Ballots[voterID] = ballot
		occ.Voting = datatypes.NewJSONType(v)
		return true, nil
	})
	return err
}

// Close computes the voting result once and applies the winners' award
// counters. Calling it again returns the stored result and re-applies only
// the awards that were not committed yet.
func (s *Service) Close(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	occ, err := s.ledger.Update(ctx, key, func(occ *model.Occurrence) (bool, error) {
		if occ.VotingResult.Data() != nil {
			return false, nil
		}
		v := occ.Voting.Data()
		if !v.Open {
			return false, fmt.Errorf("%w: voting on %s is not open", ledger.ErrInvalidState, key)
		}

		best, worst := Tally(v.Ballots)
		stats := occ.Stats.Data()
		result := &model.VotingResult{
			Best:     Winner(best, stats),
			Worst:    Winner(worst, stats),
			ClosedAt: s.now(),
		}
		v.Open = false
		occ.Voting = datatypes.NewJSONType(v)
		occ.VotingResult = datatypes.NewJSONType(result)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	result := occ.VotingResult.Data()
	if err := s.applyAward(ctx, key, model.AwardBest, result.Best.Winner); err != nil {
		return occ, err
	}
	if err := s.applyAward(ctx, key, model.AwardWorst, result.Worst.Winner); err != nil {
		return occ, err
	}
	return occ, nil
}

func (s *Service) applyAward(ctx context.Context, key model.OccurrenceKey, award model.Award, playerID string) error {
	if playerID == "" {
		return nil
	}
	err := s.ledger.Retry(ctx, "award "+string(award)+" "+key.String(), func(ctx context.Context) error {
		return s.awards.ApplyAward(ctx, key, award, playerID)
	})
	if errors.Is(err, ledger.ErrAlreadyApplied) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply %s award for %s: %w", award, key, err)
	}
	logger.Infof("voting: %s %s award goes to %s", key, award, playerID)
	return nil
}
