package voting

import (
	"sort"

	"matchday-backend/internal/model"
)

// QuickScore is the live-stats performance score used only to break voting
// ties. It is not the persisted ranking score.
func QuickScore(s model.PlayerStats) int {
	return s.Goals*2 + s.Assists
}

// Tally counts nominations per award.
func Tally(ballots map[string]model.Ballot) (best, worst map[string]int) {
	best = make(map[string]int)
	worst = make(map[string]int)
	for _, b := range ballots {
		best[b.Best]++
		worst[b.Worst]++
	}
	return best, worst
}

// Winner picks the most voted nominee. Equal counts go to the higher
// QuickScore; if that also ties, the lowest participant id wins, which is an
// arbitrary but stable choice. An empty tally yields an empty result.
func Winner(counts map[string]int, stats map[string]model.PlayerStats) model.AwardResult {
	result := model.AwardResult{Tally: counts}
	if len(counts) == 0 {
		return result
	}

	nominees := make([]string, 0, len(counts))
	for id := range counts {
		nominees = append(nominees, id)
	}
	sort.Slice(nominees, func(i, j int) bool {
		a, b := nominees[i], nominees[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if qa, qb := QuickScore(stats[a]), QuickScore(stats[b]); qa != qb {
			return qa > qb
		}
		return a < b
	})

	result.Winner = nominees[0]
	result.Votes = counts[nominees[0]]
	return result
}
