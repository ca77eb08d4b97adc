package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

type embedderFake struct {
	queries []string
	err     error
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type vectorStoreFake struct {
	results []domain.SearchResult
	filter  domain.SearchFilter
	limit   int
	err     error
}

func (f *vectorStoreFake) CollectionExists(context.Context) (bool, error) { return true, nil }
func (f *vectorStoreFake) PointCount(context.Context) (uint64, error) { return uint64(len(f.results)), nil }
func (f *vectorStoreFake) ScrollAll(context.Context) ([]domain.CorpusRecord, error) {
	return nil, nil
}
func (f *vectorStoreFake) Search(_ context.Context, _ []float32, limit int, filter domain.SearchFilter) ([]domain.SearchResult, error) {
	f.limit = limit
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type generatorFake struct {
	response  string
	chunks    []string
	err       error
	streamErr error
	calls     int
}

func (f *generatorFake) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *generatorFake) GenerateStream(_ context.Context, _, _ string, onChunk func(string) error) error {
	f.calls++
	for _, chunk := range f.chunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return f.streamErr
}

func newTestUseCase(vector *vectorStoreFake, generator *generatorFake) *QueryUseCase {
	records := []domain.CorpusRecord{
		{ID: "sparse-1", Text: "ketentuan pesangon bagi pekerja", Citation: "UU 13/2003 Pasal 156", CitationID: "uu-13-2003-156"},
	}
	return NewQueryUseCase(
		NewQueryExpander(testSynonyms()),
		&embedderFake{},
		vector,
		NewSparseIndex(records),
		nil,
		generator,
		Options{TopK: 3, HybridCandidates: 10},
	)
}

func denseHit(id string, score float64) domain.SearchResult {
	return domain.SearchResult{
		ID:         id,
		Text:       "isi pasal " + id,
		Citation:   "UU " + id,
		CitationID: "cid-" + id,
		Score:      score,
		Metadata:   map[string]any{"document_type": "undang-undang"},
	}
}

func TestQueryHappyPath(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9), denseHit("2", 0.8)}}
	generator := &generatorFake{response: "Berdasarkan [1], jawabannya jelas."}
	uc := newTestUseCase(vector, generator)

	response, err := uc.Query(context.Background(), domain.QueryRequest{Question: "apa aturan pesangon?"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if response.Answer != "Berdasarkan [1], jawabannya jelas." {
		t.Fatalf("unexpected answer %q", response.Answer)
	}
	if len(response.Citations) == 0 {
		t.Fatalf("expected citations")
	}
	if response.Validation == nil || response.Validation.HallucinationRisk != domain.RiskLow {
		t.Fatalf("expected low risk validation, got %+v", response.Validation)
	}
	if response.ConfidenceScore == nil {
		t.Fatalf("expected confidence score")
	}
	if response.RawContext == "" {
		t.Fatalf("expected raw context")
	}
}

func TestQueryZeroResultsSkipsGenerator(t *testing.T) {
	vector := &vectorStoreFake{}
	generator := &generatorFake{response: "should not be called"}
	uc := NewQueryUseCase(
		NewQueryExpander(nil),
		&embedderFake{},
		vector,
		NewSparseIndex(nil),
		nil,
		generator,
		Options{},
	)

	response, err := uc.Query(context.Background(), domain.QueryRequest{Question: "pertanyaan tanpa hasil"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("generator must not be invoked on zero retrieval results")
	}
	if response.Confidence != domain.ConfidenceNone {
		t.Fatalf("expected confidence none, got %s", response.Confidence)
	}
	if len(response.Citations) != 0 {
		t.Fatalf("expected empty citations, got %d", len(response.Citations))
	}
	if !strings.Contains(response.Answer, "tidak menemukan") {
		t.Fatalf("expected refusal answer, got %q", response.Answer)
	}
}

func TestQueryEmptyQuestionRejected(t *testing.T) {
	uc := newTestUseCase(&vectorStoreFake{}, &generatorFake{})
	_, err := uc.Query(context.Background(), domain.QueryRequest{Question: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQueryEmbedErrorIsFatal(t *testing.T) {
	uc := NewQueryUseCase(
		NewQueryExpander(nil),
		&embedderFake{err: errors.New("embed down")},
		&vectorStoreFake{},
		NewSparseIndex(nil),
		nil,
		&generatorFake{},
		Options{},
	)
	_, err := uc.Query(context.Background(), domain.QueryRequest{Question: "q"})
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestQueryRetrievalErrorIsFatal(t *testing.T) {
	vector := &vectorStoreFake{err: errors.New("qdrant down")}
	uc := newTestUseCase(vector, &generatorFake{})
	_, err := uc.Query(context.Background(), domain.QueryRequest{Question: "apa aturan pesangon?"})
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestQueryGenerationErrorIsFatal(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9)}}
	uc := newTestUseCase(vector, &generatorFake{err: errors.New("llm down")})
	_, err := uc.Query(context.Background(), domain.QueryRequest{Question: "apa aturan pesangon?"})
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestQueryPropagatesDocumentTypeFilter(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9)}}
	uc := newTestUseCase(vector, &generatorFake{response: "jawaban [1]"})

	_, err := uc.Query(context.Background(), domain.QueryRequest{
		Question:           "apa aturan pesangon?",
		FilterDocumentType: "undang-undang",
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if vector.filter.DocumentType != "undang-undang" {
		t.Fatalf("filter not propagated, got %+v", vector.filter)
	}
}

func TestSearchOutputHasNoDuplicateIDs(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9), denseHit("2", 0.8)}}
	uc := newTestUseCase(vector, &generatorFake{})

	// Multiple variants re-surface the same dense results; fusion must
	// still emit each id once.
	results, err := uc.Search(context.Background(), "berapa gaji karyawan yang kena phk?", 10, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	seen := make(map[string]struct{}, len(results))
	for _, result := range results {
		if _, ok := seen[result.ID]; ok {
			t.Fatalf("duplicate id %s in hybrid search output", result.ID)
		}
		seen[result.ID] = struct{}{}
	}
}

func TestSearchRerankFailureFiresFallbackHook(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9), denseHit("2", 0.8)}}
	uc := NewQueryUseCase(
		NewQueryExpander(nil),
		&embedderFake{},
		vector,
		NewSparseIndex(nil),
		&crossEncoderFake{err: errors.New("encoder down")},
		&generatorFake{},
		Options{TopK: 3, HybridCandidates: 10},
	)
	fired := 0
	uc.WithRerankFallbackHook(func() { fired++ })

	results, err := uc.Search(context.Background(), "apa aturan pesangon?", 3, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if fired != 1 {
		t.Fatalf("fallback hook fired %d times, want 1", fired)
	}
	if len(results) == 0 {
		t.Fatalf("fused order must still be served on encoder failure")
	}
}

func TestSearchRerankCandidatesBoundsEncoderInput(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9), denseHit("2", 0.8), denseHit("3", 0.7)}}
	// Two scores for a fused list of three: only a pre-rerank trim to two
	// candidates lets the encoder succeed.
	encoder := &crossEncoderFake{scores: []float64{0.2, 0.9}}
	uc := NewQueryUseCase(
		NewQueryExpander(nil),
		&embedderFake{},
		vector,
		NewSparseIndex(nil),
		encoder,
		&generatorFake{},
		Options{TopK: 2, HybridCandidates: 10, RerankCandidates: 2},
	)
	fired := 0
	uc.WithRerankFallbackHook(func() { fired++ })

	results, err := uc.Search(context.Background(), "apa aturan pesangon?", 2, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if fired != 0 {
		t.Fatalf("encoder received an untrimmed list, fallback fired %d times", fired)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestQueryWithHistoryFoldsTurnsIntoPrompt(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9)}}
	generator := &capturingGenerator{response: "jawaban [1]"}
	uc := NewQueryUseCase(
		NewQueryExpander(nil),
		&embedderFake{},
		vector,
		NewSparseIndex(nil),
		nil,
		generator,
		Options{},
	)

	_, err := uc.QueryWithHistory(context.Background(), domain.QueryRequest{
		Question: "bagaimana dengan kontrak PKWT?",
		History: []domain.HistoryTurn{
			{Question: "apa itu PHK?", Answer: "Pemutusan hubungan kerja."},
		},
	})
	if err != nil {
		t.Fatalf("QueryWithHistory() error = %v", err)
	}
	if !strings.Contains(generator.prompt, "apa itu PHK?") {
		t.Fatalf("history not folded into prompt:\n%s", generator.prompt)
	}
	if !strings.Contains(generator.prompt, "Pemutusan hubungan kerja.") {
		t.Fatalf("history answer not folded into prompt:\n%s", generator.prompt)
	}
}

type capturingGenerator struct {
	prompt   string
	system   string
	response string
}

func (f *capturingGenerator) Generate(_ context.Context, prompt, system string) (string, error) {
	f.prompt = prompt
	f.system = system
	return f.response, nil
}

func (f *capturingGenerator) GenerateStream(_ context.Context, prompt, system string, onChunk func(string) error) error {
	f.prompt = prompt
	f.system = system
	return onChunk(f.response)
}

func TestQueryStreamEventOrdering(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9)}}
	generator := &generatorFake{chunks: []string{"Berdasarkan ", "[1]."}}
	uc := newTestUseCase(vector, generator)

	var events []domain.StreamEvent
	err := uc.QueryStream(context.Background(), domain.QueryRequest{Question: "apa aturan pesangon?"}, func(event domain.StreamEvent) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("QueryStream() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected metadata + 2 chunks + done, got %d events", len(events))
	}
	if events[0].Type != domain.StreamEventMetadata {
		t.Fatalf("expected metadata first, got %s", events[0].Type)
	}
	if len(events[0].Citations) == 0 {
		t.Fatalf("metadata event must carry citations")
	}
	if events[1].Type != domain.StreamEventChunk || events[1].Content != "Berdasarkan " {
		t.Fatalf("unexpected chunk event: %+v", events[1])
	}
	last := events[len(events)-1]
	if last.Type != domain.StreamEventDone {
		t.Fatalf("expected done last, got %s", last.Type)
	}
	if last.Validation == nil || last.Validation.HallucinationRisk != domain.RiskLow {
		t.Fatalf("done event must carry validation over assembled text, got %+v", last.Validation)
	}
}

func TestQueryStreamZeroResultsEmitsRefusal(t *testing.T) {
	generator := &generatorFake{}
	uc := NewQueryUseCase(
		NewQueryExpander(nil),
		&embedderFake{},
		&vectorStoreFake{},
		NewSparseIndex(nil),
		nil,
		generator,
		Options{},
	)

	var events []domain.StreamEvent
	err := uc.QueryStream(context.Background(), domain.QueryRequest{Question: "tidak ada hasil"}, func(event domain.StreamEvent) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("QueryStream() error = %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("generator must not stream on zero results")
	}
	if len(events) != 3 {
		t.Fatalf("expected metadata, refusal chunk, done; got %d events", len(events))
	}
	if events[1].Content != refusalAnswer {
		t.Fatalf("expected refusal chunk, got %q", events[1].Content)
	}
	if events[2].Validation != nil {
		t.Fatalf("done after refusal must carry no validation payload")
	}
}

func TestQueryStreamSinkErrorStopsGeneration(t *testing.T) {
	vector := &vectorStoreFake{results: []domain.SearchResult{denseHit("1", 0.9)}}
	generator := &generatorFake{chunks: []string{"a", "b", "c"}}
	uc := newTestUseCase(vector, generator)

	delivered := 0
	sinkErr := errors.New("client gone")
	err := uc.QueryStream(context.Background(), domain.QueryRequest{Question: "apa aturan pesangon?"}, func(event domain.StreamEvent) error {
		if event.Type == domain.StreamEventChunk {
			delivered++
			if delivered == 2 {
				return sinkErr
			}
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected stream abort error")
	}
	if delivered != 2 {
		t.Fatalf("expected generation to stop after sink error, delivered=%d", delivered)
	}
}
