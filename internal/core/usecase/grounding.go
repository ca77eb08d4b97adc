package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

var (
	citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)
	// The braces exclude backticks so the match can never swallow an
	// earlier fenced block; only the final fence in the text qualifies.
	fencedJSONRe = regexp.MustCompile("```(?:json)?\\s*(\\{[^`]*\\})\\s*```\\s*$")
)

type citedSourcesBlock struct {
	CitedSources []int `json:"cited_sources"`
}

// extractCitedSources looks for a trailing structured block declaring which
// citation numbers the model actually used, either fenced in a code block or
// as a bare JSON object at the end of the text. The block is stripped from
// the returned answer. Malformed JSON is treated as absent, never an error.
func extractCitedSources(answer string) (string, []int, bool) {
	trimmed := strings.TrimSpace(answer)

	if match := fencedJSONRe.FindStringSubmatchIndex(trimmed); match != nil {
		raw := trimmed[match[2]:match[3]]
		if cited, ok := parseCitedSources(raw); ok {
			return strings.TrimSpace(trimmed[:match[0]]), cited, true
		}
		// Malformed metadata is treated as absent: the answer stays
		// intact and marker extraction runs over the full text.
		slog.Warn("grounding_metadata_invalid", "kind", "fenced")
		return trimmed, nil, false
	}

	if strings.HasSuffix(trimmed, "}") {
		start := strings.LastIndex(trimmed, "{")
		if start >= 0 {
			raw := trimmed[start:]
			if cited, ok := parseCitedSources(raw); ok {
				return strings.TrimSpace(trimmed[:start]), cited, true
			}
		}
	}

	return trimmed, nil, false
}

func parseCitedSources(raw string) ([]int, bool) {
	var block citedSourcesBlock
	if err := json.Unmarshal([]byte(raw), &block); err != nil {
		return nil, false
	}
	if block.CitedSources == nil {
		return nil, false
	}
	return block.CitedSources, true
}

// referencedCitations collects the distinct [n] markers in free text.
func referencedCitations(answer string) []int {
	matches := citationMarkerRe.FindAllStringSubmatch(answer, -1)
	seen := make(map[int]struct{}, len(matches))
	out := make([]int, 0, len(matches))
	for _, match := range matches {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// validateGrounding compares the answer's referenced citation numbers with
// the valid set {1..len(citations)}. A structured cited_sources block takes
// precedence over markers parsed from free text.
func validateGrounding(answer string, citations []domain.Citation) (string, domain.ValidationResult) {
	cleanAnswer, structured, hasStructured := extractCitedSources(answer)

	var referenced []int
	if hasStructured {
		referenced = dedupeInts(structured)
	} else {
		referenced = referencedCitations(cleanAnswer)
	}

	validCount := len(citations)
	covered := 0
	missing := make([]int, 0)
	for _, n := range referenced {
		if n >= 1 && n <= validCount {
			covered++
		} else {
			missing = append(missing, n)
		}
	}
	sort.Ints(missing)

	coverage := 0.0
	if validCount > 0 && len(referenced) > 0 {
		coverage = float64(covered) / float64(validCount)
	}

	risk := domain.RiskLow
	warnings := make([]string, 0, 2)
	switch {
	case len(referenced) == 0:
		risk = domain.RiskHigh
		warnings = append(warnings, "answer does not reference any retrieved citation")
	case len(missing) > 0:
		risk = domain.RiskMedium
		warnings = append(warnings, fmt.Sprintf("answer references citations that were not retrieved: %v", missing))
	}

	return cleanAnswer, domain.ValidationResult{
		IsValid:           risk != domain.RiskHigh,
		CitationCoverage:  coverage,
		Warnings:          warnings,
		HallucinationRisk: risk,
		MissingCitations:  missing,
	}
}

func dedupeInts(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
