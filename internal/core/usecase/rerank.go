package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/hukumnesia/lexqa/internal/core/domain"
	"github.com/hukumnesia/lexqa/internal/core/ports"
)

// rerankCandidates re-scores the fused candidates with the cross-encoder and
// truncates to topK. Raw cross-encoder logits are mapped into the unit
// neighborhood with (raw+5)/10; this is a fixed affine convention, not a
// probability. Any encoder failure falls back to the fused ordering
// truncated to topK: reranking can never fail the query. The second return
// reports that fallback, so callers can count degraded queries; a nil
// encoder is not a fallback, just an unconfigured stage.
func rerankCandidates(
	ctx context.Context,
	encoder ports.CrossEncoder,
	query string,
	fused []domain.SearchResult,
	topK int,
) ([]domain.SearchResult, bool) {
	if len(fused) == 0 {
		return fused, false
	}
	if encoder == nil {
		return trimCandidates(fused, topK), false
	}

	texts := make([]string, len(fused))
	for i, candidate := range fused {
		texts[i] = candidate.Text
	}

	rawScores, err := encoder.Predict(ctx, query, texts)
	if err != nil || len(rawScores) != len(fused) {
		slog.Warn("rerank_fallback", "candidates", len(fused), "error", err)
		return trimCandidates(fused, topK), true
	}

	reranked := make([]domain.SearchResult, len(fused))
	for i, candidate := range fused {
		rescored := candidate
		rescored.Score = (rawScores[i] + 5.0) / 10.0
		reranked[i] = rescored
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].ID < reranked[j].ID
	})

	return trimCandidates(reranked, topK), false
}
