package usecase

import (
	"fmt"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

// Confidence label cutoffs are a tunable policy, calibrated against a few
// qualitative scenarios (one weak narrow hit must stay below High, several
// strong diverse hits must reach it), not an external contract.
const (
	confidenceMediumCutoff = 0.45
	confidenceHighCutoff   = 0.75
)

// scoreConfidence converts the final post-rerank result list into a numeric
// confidence and a discrete label. Top score and average score carry most
// of the weight; result count and regulation-type diversity add the rest.
func scoreConfidence(results []domain.SearchResult) domain.ConfidenceScore {
	if len(results) == 0 {
		return domain.ConfidenceScore{Level: domain.ConfidenceNone}
	}

	topScore := results[0].Score
	sum := 0.0
	types := make(map[string]struct{})
	for _, result := range results {
		if result.Score > topScore {
			topScore = result.Score
		}
		sum += result.Score
		if docType := documentType(result.Metadata); docType != "" {
			types[docType] = struct{}{}
		}
	}
	avgScore := sum / float64(len(results))

	countSignal := float64(len(results)) / 5.0
	if countSignal > 1 {
		countSignal = 1
	}
	diversitySignal := float64(len(types)) / 3.0
	if diversitySignal > 1 {
		diversitySignal = 1
	}

	numeric := 0.5*clampUnit(topScore) + 0.3*clampUnit(avgScore) + 0.1*countSignal + 0.1*diversitySignal

	level := domain.ConfidenceLow
	switch {
	case numeric >= confidenceHighCutoff:
		level = domain.ConfidenceHigh
	case numeric >= confidenceMediumCutoff:
		level = domain.ConfidenceMedium
	}

	return domain.ConfidenceScore{
		Numeric:  numeric,
		Level:    level,
		TopScore: topScore,
		AvgScore: avgScore,
	}
}

func documentType(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}
	v, ok := metadata["document_type"]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
