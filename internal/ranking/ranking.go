// Package ranking turns closed occurrences into round and annual leaderboards.
package ranking

import (
	"math"
	"sort"

	"matchday-backend/internal/model"
)

// Score weights of the persisted ranking.
const (
	VoteWeight   = 20
	GoalWeight   = 10
	AssistWeight = 5
)

// Metric selects the column a leaderboard is ordered by.
type Metric string

const (
	MetricScore   Metric = "score"   // pontuacao
	MetricGoals   Metric = "goals"   // artilharia
	MetricAssists Metric = "assists" // assistencias
)

// ParseMetric maps a query value to a Metric, defaulting to MetricScore.
func ParseMetric(s string) (Metric, bool) {
	switch Metric(s) {
	case "", MetricScore:
		return MetricScore, true
	case MetricGoals, MetricAssists:
		return Metric(s), true
	}
	return "", false
}

// Score is the round score. Votes counts every ballot naming the player,
// as best or worst alike.
func Score(votes, goals, assists int) int {
	return int(math.Round(float64(votes*VoteWeight + goals*GoalWeight + assists*AssistWeight)))
}

// Build produces the round entries of a closed occurrence, ordered by score.
// Participants come from the roster first, then from stats and votes in id
// order; guests and the empty-slot placeholder are left out. Unknown players
// are named by their id.
func Build(occ *model.Occurrence, votes map[string]int, players map[string]model.Player) []model.RankingEntry {
	stats := occ.Stats.Data()

	seen := make(map[string]bool)
	var order []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
	}
	for _, id := range occ.Occupants {
		add(id)
	}
	for _, id := range sortedKeys(stats) {
		add(id)
	}
	for _, id := range sortedKeys(votes) {
		add(id)
	}

	entries := make([]model.RankingEntry, 0, len(order))
	for _, id := range order {
		player, ok := players[id]
		if !ok {
			player = model.Player{ID: id, Name: id}
		}
		if !player.Ranked() {
			continue
		}
		s := stats[id]
		entries = append(entries, model.RankingEntry{
			ParticipantID: id,
			Name:          player.Name,
			Score:         Score(votes[id], s.Goals, s.Assists),
			Goals:         s.Goals,
			Assists:       s.Assists,
		})
	}
	return Leaderboard(entries, MetricScore)
}

// Leaderboard returns a copy of entries ordered by metric, descending. Ties
// keep their incoming order. The goals and assists boards drop players with
// nothing to show.
func Leaderboard(entries []model.RankingEntry, metric Metric) []model.RankingEntry {
	value := func(e model.RankingEntry) int {
		switch metric {
		case MetricGoals:
			return e.Goals
		case MetricAssists:
			return e.Assists
		default:
			return e.Score
		}
	}

	board := make([]model.RankingEntry, 0, len(entries))
	for _, e := range entries {
		if metric != MetricScore && value(e) == 0 {
			continue
		}
		board = append(board, e)
	}
	sort.SliceStable(board, func(i, j int) bool {
		return value(board[i]) > value(board[j])
	})
	return board
}

// Merge adds incoming entries to existing ones: matching participants have
// their goals, assists and score summed, everyone else is carried over. The
// incoming name wins when present. The result is ordered by score.
//
// Merge is not idempotent; applying the same batch twice counts it twice.
func Merge(existing, incoming []model.RankingEntry) []model.RankingEntry {
	merged := make([]model.RankingEntry, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, e := range existing {
		if i, ok := index[e.ParticipantID]; ok {
			merged[i] = sum(merged[i], e)
			continue
		}
		index[e.ParticipantID] = len(merged)
		merged = append(merged, e)
	}
	for _, e := range incoming {
		if i, ok := index[e.ParticipantID]; ok {
			merged[i] = sum(merged[i], e)
			continue
		}
		index[e.ParticipantID] = len(merged)
		merged = append(merged, e)
	}
	return Leaderboard(merged, MetricScore)
}

func sum(a, b model.RankingEntry) model.RankingEntry {
	name := a.Name
	if b.Name != "" {
		name = b.Name
	}
	return model.RankingEntry{
		ParticipantID: a.ParticipantID,
		Name:          name,
		Score:         a.Score + b.Score,
		Goals:         a.Goals + b.Goals,
		Assists:       a.Assists + b.Assists,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
