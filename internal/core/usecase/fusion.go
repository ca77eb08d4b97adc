package usecase

import (
	"sort"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	result domain.SearchResult
	score  float64
}

// fuseResultsRRF merges any number of independently ranked lists (dense and
// sparse, across all query variants) with Reciprocal Rank Fusion. Each
// document contributes 1/(K+rank+1) per list it appears in; the fused score
// is the sum. Output is deduplicated by document id, keeping the first
// occurrence's payload, and sorted by descending fused score with a stable
// id tie-break.
func fuseResultsRRF(lists [][]domain.SearchResult, rrfK int) []domain.SearchResult {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]fusedCandidate)
	order := make([]string, 0)
	for _, list := range lists {
		for rank, result := range list {
			candidate, ok := acc[result.ID]
			if !ok {
				candidate.result = result
				order = append(order, result.ID)
			}
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[result.ID] = candidate
		}
	}

	out := make([]domain.SearchResult, 0, len(order))
	for _, id := range order {
		candidate := acc[id]
		fused := candidate.result
		fused.Score = candidate.score
		out = append(out, fused)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func trimCandidates(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
