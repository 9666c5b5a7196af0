package ranking

import (
	"context"
	"fmt"

	"github.com/google/logger"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
	"matchday-backend/internal/store"
)

// Store is the persistence the publisher needs.
type Store interface {
	Players(ctx context.Context, ids []string) (map[string]model.Player, error)
	ApplyRanking(ctx context.Context, key model.OccurrenceKey, entries []model.RankingEntry, merge store.MergeFunc) (*model.RoundRanking, error)
	RoundRankings(ctx context.Context, date string) ([]model.RoundRanking, error)
	AnnualRanking(ctx context.Context, year int) (*model.AnnualRanking, error)
}

// Publisher saves round rankings and folds them into the annual ranking.
type Publisher struct {
	store  Store
	ledger *ledger.Ledger
}

// NewPublisher creates a Publisher. The ledger supplies the retry budget.
func NewPublisher(s Store, l *ledger.Ledger) *Publisher {
	return &Publisher{store: s, ledger: l}
}

// VotesReceived counts, per participant, the ballots naming them for either award.
func VotesReceived(ballots map[string]model.Ballot) map[string]int {
	received := make(map[string]int)
	for _, b := range ballots {
		received[b.Best]++
		received[b.Worst]++
	}
	return received
}

// Publish stores the round ranking of a closed occurrence and merges it into
// its year's ranking. It returns ledger.ErrAlreadyApplied if the occurrence
// was published before, so the annual totals are never counted twice.
func (p *Publisher) Publish(ctx context.Context, occ *model.Occurrence) (*model.RoundRanking, error) {
	key := occ.Key()
	if occ.Status != model.StatusClosed {
		return nil, fmt.Errorf("%w: cannot rank %s while %s", ledger.ErrInvalidState, key, occ.Status)
	}
	voting := occ.Voting.Data()
	if voting.Enabled && occ.VotingResult.Data() == nil {
		return nil, fmt.Errorf("%w: voting on %s has not finished", ledger.ErrInvalidState, key)
	}

	votes := VotesReceived(voting.Ballots)
	ids := append([]string{}, occ.Occupants...)
	for id := range occ.Stats.Data() {
		ids = append(ids, id)
	}
	for id := range votes {
		ids = append(ids, id)
	}
	players, err := p.store.Players(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := Build(occ, votes, players)
	var round *model.RoundRanking
	err = p.ledger.Retry(ctx, "ranking "+key.String(), func(ctx context.Context) error {
		var err error
		round, err = p.store.ApplyRanking(ctx, key, entries, Merge)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("ranking: %s published as %s %s with %d entries", key, round.Date, round.Label(), len(entries))
	return round, nil
}

// Rounds returns the rounds saved for a date, each ordered by metric.
func (p *Publisher) Rounds(ctx context.Context, date string, metric Metric) ([]model.RoundRanking, error) {
	rounds, err := p.store.RoundRankings(ctx, date)
	if err != nil {
		return nil, err
	}
	for i := range rounds {
		rounds[i].Entries = Leaderboard(rounds[i].Entries, metric)
	}
	return rounds, nil
}

// Annual returns a year's cumulative ranking ordered by metric.
func (p *Publisher) Annual(ctx context.Context, year int, metric Metric) (*model.AnnualRanking, error) {
	annual, err := p.store.AnnualRanking(ctx, year)
	if err != nil {
		return nil, err
	}
	annual.Entries = Leaderboard(annual.Entries, metric)
	return annual, nil
}
