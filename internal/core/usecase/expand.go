package usecase

import (
	"sort"
	"strings"
)

const maxQueryVariants = 3

// QueryExpander widens a question with lexical variants built from a legal
// synonym table, to bridge the gap between colloquial phrasing and statute
// language. The original question is always variant #1.
type QueryExpander struct {
	synonyms map[string][]string
	terms    []string
}

func NewQueryExpander(synonyms map[string][]string) *QueryExpander {
	normalized := make(map[string][]string, len(synonyms))
	for term, expansions := range synonyms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || len(expansions) == 0 {
			continue
		}
		normalized[term] = expansions
	}

	terms := make([]string, 0, len(normalized))
	for term := range normalized {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	return &QueryExpander{synonyms: normalized, terms: terms}
}

// Expand returns up to maxQueryVariants distinct query strings. A matched
// term is augmented with its synonym by appending, not substituted, so the
// original wording keeps contributing to sparse retrieval. Term scan order
// is fixed so the same question always expands the same way.
func (e *QueryExpander) Expand(question string) []string {
	variants := []string{question}
	seen := map[string]struct{}{question: {}}

	lowered := strings.ToLower(question)
	for _, term := range e.terms {
		if len(variants) >= maxQueryVariants {
			break
		}
		if !strings.Contains(lowered, term) {
			continue
		}
		for _, expansion := range e.synonyms[term] {
			if len(variants) >= maxQueryVariants {
				break
			}
			variant := question + " " + expansion
			if _, ok := seen[variant]; ok {
				continue
			}
			seen[variant] = struct{}{}
			variants = append(variants, variant)
		}
	}
	return variants
}
