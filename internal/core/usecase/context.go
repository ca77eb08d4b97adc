package usecase

import (
	"fmt"
	"strings"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

// formatContext turns the final ranked list into the numbered context block
// handed to the generator and the parallel citation list. Numbering is
// positional: block [i] always corresponds to citation number i, in the
// order fixed by the previous stage.
func formatContext(results []domain.SearchResult) (string, []domain.Citation) {
	if len(results) == 0 {
		return "", nil
	}

	var contextBuilder strings.Builder
	citations := make([]domain.Citation, 0, len(results))
	for i, result := range results {
		number := i + 1
		contextBuilder.WriteString(fmt.Sprintf("[%d] %s\n%s\n\n", number, result.Citation, result.Text))
		citations = append(citations, domain.Citation{
			Number:     number,
			CitationID: result.CitationID,
			Citation:   result.Citation,
			Score:      result.Score,
			Metadata:   result.Metadata,
		})
	}
	return contextBuilder.String(), citations
}

// citationSources flattens the citation list into the Response.sources
// strings.
func citationSources(citations []domain.Citation) []string {
	sources := make([]string, 0, len(citations))
	for _, citation := range citations {
		sources = append(sources, citation.Citation)
	}
	return sources
}
