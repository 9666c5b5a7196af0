// Package match wires the roster, stats, voting and ranking steps into the
// flows exposed over HTTP and used by the scheduler.
package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
	"matchday-backend/internal/ranking"
	"matchday-backend/internal/roster"
	"matchday-backend/internal/stats"
	"matchday-backend/internal/voting"
)

// Announcer delivers a short message to everyone following a group.
type Announcer interface {
	Announce(groupID, message string)
}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(string, string) {}

// Service is the entry point for every occurrence operation.
type Service struct {
	ledger    *ledger.Ledger
	roster    *roster.Service
	recorder  *stats.Recorder
	voting    *voting.Service
	publisher *ranking.Publisher
	announcer Announcer
}

// NewService assembles a Service. announcer may be nil.
func NewService(l *ledger.Ledger, r *roster.Service, rec *stats.Recorder, v *voting.Service, p *ranking.Publisher, announcer Announcer) *Service {
	if announcer == nil {
		announcer = nopAnnouncer{}
	}
	return &Service{
		ledger:    l,
		roster:    r,
		recorder:  rec,
		voting:    v,
		publisher: p,
		announcer: announcer,
	}
}

// Get returns the stored occurrence.
func (s *Service) Get(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	return s.ledger.Get(ctx, key)
}

// Create schedules a new occurrence with an empty roster.
func (s *Service) Create(ctx context.Context, key model.OccurrenceKey, capacity int, votingEnabled bool) (*model.Occurrence, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	occ := model.NewOccurrence(key, capacity, votingEnabled)
	if err := s.ledger.Create(ctx, occ); err != nil {
		return nil, err
	}
	logger.Infof("match: scheduled %s with %d slots", key, capacity)
	return occ, nil
}

// Schedule creates the occurrence of a group on date unless it exists, and
// announces it. It reports whether a new occurrence was created.
func (s *Service) Schedule(ctx context.Context, group model.Group, date string) (bool, error) {
	key := model.OccurrenceKey{GroupID: group.ID, Date: date}
	_, err := s.Create(ctx, key, group.Capacity, group.VotingEnabled)
	if errors.Is(err, ledger.ErrExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.announcer.Announce(group.ID, fmt.Sprintf("%s: match on %s is open for confirmations", group.Name, date))
	return true, nil
}

// Confirm claims a roster slot.
func (s *Service) Confirm(ctx context.Context, key model.OccurrenceKey, participantID string, defaults roster.Defaults) (roster.Outcome, error) {
	return s.roster.Confirm(ctx, key, participantID, defaults)
}

// Withdraw releases a roster slot.
func (s *Service) Withdraw(ctx context.Context, key model.OccurrenceKey, participantID string) error {
	return s.roster.Withdraw(ctx, key, participantID)
}

// Start puts the match live.
func (s *Service) Start(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	return s.recorder.Start(ctx, key)
}

// RecordEvent adds a goal or assist to a live match.
func (s *Service) RecordEvent(ctx context.Context, key model.OccurrenceKey, participantID string, kind model.EventKind) (*model.Event, error) {
	return s.recorder.RecordEvent(ctx, key, participantID, kind)
}

// Close ends the match. With voting enabled the ballot opens, otherwise the
// round is ranked straight away. Repeating Close on a closed match re-runs
// only the follow-up steps that have not completed.
func (s *Service) Close(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	occ, _, err := s.recorder.Close(ctx, key)
	if err != nil {
		return nil, err
	}

	if occ.Voting.Data().Enabled && occ.VotingResult.Data() == nil {
		return s.voting.Open(ctx, key)
	}
	_, err = s.publish(ctx, occ)
	return occ, err
}

// OpenVoting starts the ballot explicitly.
func (s *Service) OpenVoting(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	return s.voting.Open(ctx, key)
}

// SubmitBallot records a voter's picks.
func (s *Service) SubmitBallot(ctx context.Context, key model.OccurrenceKey, voterID string, ballot model.Ballot) error {
	return s.voting.SubmitBallot(ctx, key, voterID, ballot)
}

// CloseVoting settles the ballot, applies awards, ranks the round and
// announces the winners.
func (s *Service) CloseVoting(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	occ, err := s.voting.Close(ctx, key)
	if err != nil {
		return nil, err
	}
	published, err := s.publish(ctx, occ)
	if err != nil {
		return occ, err
	}

	result := occ.VotingResult.Data()
	if published && result != nil && result.Best.Winner != "" {
		s.announcer.Announce(key.GroupID, fmt.Sprintf("Match %s: best %s (%d votes), worst %s (%d votes)",
			key.Date, result.Best.Winner, result.Best.Votes, result.Worst.Winner, result.Worst.Votes))
	}
	return occ, nil
}

// publish ranks a closed occurrence and reports whether this call did it.
// An earlier publish is not an error here.
func (s *Service) publish(ctx context.Context, occ *model.Occurrence) (bool, error) {
	_, err := s.publisher.Publish(ctx, occ)
	if errors.Is(err, ledger.ErrAlreadyApplied) {
		logger.Infof("match: ranking for %s already published", occ.Key())
		return false, nil
	}
	return err == nil, err
}
