package usecase

import (
	"strings"
	"testing"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

func citationsOfLen(n int) []domain.Citation {
	out := make([]domain.Citation, n)
	for i := range out {
		out[i] = domain.Citation{Number: i + 1, Citation: "sumber"}
	}
	return out
}

func TestValidateGroundingFullCoverage(t *testing.T) {
	_, result := validateGrounding("Berdasarkan [1].", citationsOfLen(1))
	if result.CitationCoverage != 1.0 {
		t.Fatalf("expected coverage 1.0, got %v", result.CitationCoverage)
	}
	if result.HallucinationRisk != domain.RiskLow {
		t.Fatalf("expected low risk, got %s", result.HallucinationRisk)
	}
	if !result.IsValid {
		t.Fatalf("expected valid result")
	}
}

func TestValidateGroundingInventedCitation(t *testing.T) {
	_, result := validateGrounding("Berdasarkan [1] dan [5].", citationsOfLen(1))
	if len(result.MissingCitations) != 1 || result.MissingCitations[0] != 5 {
		t.Fatalf("expected missing citation [5], got %v", result.MissingCitations)
	}
	if result.HallucinationRisk != domain.RiskMedium {
		t.Fatalf("expected medium risk, got %s", result.HallucinationRisk)
	}
	if !result.IsValid {
		t.Fatalf("medium risk must still be valid")
	}
}

func TestValidateGroundingNoMarkersIsHighRisk(t *testing.T) {
	_, result := validateGrounding("Jawaban tanpa rujukan sama sekali.", citationsOfLen(1))
	if result.HallucinationRisk != domain.RiskHigh {
		t.Fatalf("expected high risk, got %s", result.HallucinationRisk)
	}
	if result.IsValid {
		t.Fatalf("high risk must be invalid")
	}
	if result.CitationCoverage != 0.0 {
		t.Fatalf("expected coverage 0.0, got %v", result.CitationCoverage)
	}
}

func TestValidateGroundingEmptyCitationSet(t *testing.T) {
	_, result := validateGrounding("Berdasarkan [1].", nil)
	if result.CitationCoverage != 0.0 {
		t.Fatalf("expected coverage 0.0 with no valid citations, got %v", result.CitationCoverage)
	}
}

func TestValidateGroundingStructuredBlockOverridesText(t *testing.T) {
	answer := "Berdasarkan [1], pekerja berhak atas pesangon.\n\n```json\n{\"cited_sources\": [1, 2]}\n```"

	clean, result := validateGrounding(answer, citationsOfLen(2))
	if result.CitationCoverage != 1.0 {
		t.Fatalf("expected structured coverage 1.0, got %v", result.CitationCoverage)
	}
	if result.HallucinationRisk != domain.RiskLow {
		t.Fatalf("expected low risk, got %s", result.HallucinationRisk)
	}
	if strings.Contains(clean, "cited_sources") {
		t.Fatalf("structured block must be stripped from answer: %q", clean)
	}
	if !strings.Contains(clean, "pesangon") {
		t.Fatalf("answer body lost during stripping: %q", clean)
	}
}

func TestValidateGroundingBareTrailingJSON(t *testing.T) {
	answer := "Pekerja berhak atas upah [1]. {\"cited_sources\": [1]}"

	clean, result := validateGrounding(answer, citationsOfLen(1))
	if result.CitationCoverage != 1.0 {
		t.Fatalf("expected coverage 1.0, got %v", result.CitationCoverage)
	}
	if strings.Contains(clean, "{") {
		t.Fatalf("bare JSON block must be stripped: %q", clean)
	}
}

func TestValidateGroundingMalformedJSONFallsBackToRegex(t *testing.T) {
	answer := "Berdasarkan [1]. {\"cited_sources\": [1,}"

	_, result := validateGrounding(answer, citationsOfLen(1))
	if result.HallucinationRisk != domain.RiskLow {
		t.Fatalf("expected regex fallback to find [1], got risk %s", result.HallucinationRisk)
	}
	if result.CitationCoverage != 1.0 {
		t.Fatalf("expected coverage 1.0 from regex fallback, got %v", result.CitationCoverage)
	}
}

func TestExtractCitedSourcesProseBeforeFencedBlock(t *testing.T) {
	answer := "Penjelasan panjang.\n\nBeberapa paragraf lagi.\n```json\n{\"cited_sources\": [2]}\n```"

	clean, cited, ok := extractCitedSources(answer)
	if !ok {
		t.Fatalf("expected structured block to be found")
	}
	if len(cited) != 1 || cited[0] != 2 {
		t.Fatalf("unexpected cited sources: %v", cited)
	}
	if strings.Contains(clean, "```") {
		t.Fatalf("fence not stripped: %q", clean)
	}
}

func TestValidateGroundingEarlierFencedBlockSurvives(t *testing.T) {
	answer := "Contoh konfigurasi:\n```json\n{\"irrelevant\": true}\n```\nBerdasarkan [1], sanksi diatur di sana.\n```json\n{\"cited_sources\": [1]}\n```"

	clean, result := validateGrounding(answer, citationsOfLen(1))
	if !strings.Contains(clean, "Berdasarkan [1]") {
		t.Fatalf("answer body lost: %q", clean)
	}
	if !strings.Contains(clean, "{\"irrelevant\": true}") {
		t.Fatalf("earlier fenced block must survive stripping: %q", clean)
	}
	if strings.Contains(clean, "cited_sources") {
		t.Fatalf("trailing structured block must be stripped: %q", clean)
	}
	if result.CitationCoverage != 1.0 {
		t.Fatalf("expected coverage 1.0, got %v", result.CitationCoverage)
	}
	if result.HallucinationRisk != domain.RiskLow {
		t.Fatalf("expected low risk, got %s", result.HallucinationRisk)
	}
}

func TestValidateGroundingMalformedFencedBlockKeepsAnswer(t *testing.T) {
	answer := "Berdasarkan [1], upah diatur.\n```json\n{\"cited_sources\": [1,}\n```"

	clean, result := validateGrounding(answer, citationsOfLen(1))
	if !strings.Contains(clean, "Berdasarkan [1]") {
		t.Fatalf("answer body lost on malformed metadata: %q", clean)
	}
	if result.HallucinationRisk != domain.RiskLow {
		t.Fatalf("expected regex fallback to find [1], got risk %s", result.HallucinationRisk)
	}
	if result.CitationCoverage != 1.0 {
		t.Fatalf("expected coverage 1.0 from regex fallback, got %v", result.CitationCoverage)
	}
}

func TestReferencedCitationsDeduplicates(t *testing.T) {
	refs := referencedCitations("Lihat [1], lalu [2], dan lagi [1].")
	if len(refs) != 2 {
		t.Fatalf("expected 2 distinct references, got %v", refs)
	}
}
