package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hukumnesia/lexqa/internal/core/domain"
	"github.com/hukumnesia/lexqa/internal/core/ports"
)

// Options tunes the retrieval pipeline. Zero values fall back to defaults.
type Options struct {
	// TopK is the number of passages handed to the generator.
	TopK int
	// HybridCandidates bounds each per-variant retrieval list.
	HybridCandidates int
	// RerankCandidates bounds the fused list handed to the cross-encoder.
	RerankCandidates int
	// RRFK is the Reciprocal Rank Fusion constant.
	RRFK int
	// RequestCitedSources asks the model for a trailing cited_sources
	// JSON block, which grounds validation more reliably than free-text
	// markers.
	RequestCitedSources bool
}

func (o Options) normalize() Options {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.HybridCandidates <= 0 {
		o.HybridCandidates = 20
	}
	if o.RerankCandidates <= 0 {
		o.RerankCandidates = o.HybridCandidates
	}
	if o.RRFK <= 0 {
		o.RRFK = defaultRRFK
	}
	return o
}

// QueryUseCase composes expansion, hybrid retrieval, fusion, optional
// rerank, generation and grounding validation into the query operations.
type QueryUseCase struct {
	expander  *QueryExpander
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	sparse    *SparseIndex
	encoder   ports.CrossEncoder
	generator ports.AnswerGenerator
	queryLog  ports.QueryLogStore
	events    ports.EventPublisher
	opts      Options

	onRerankFallback func()
}

func NewQueryUseCase(
	expander *QueryExpander,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	sparse *SparseIndex,
	encoder ports.CrossEncoder,
	generator ports.AnswerGenerator,
	opts Options,
) *QueryUseCase {
	return &QueryUseCase{
		expander:  expander,
		embedder:  embedder,
		vectorDB:  vectorDB,
		sparse:    sparse,
		encoder:   encoder,
		generator: generator,
		opts:      opts.normalize(),
	}
}

// WithAudit attaches the best-effort query log store and event publisher.
func (uc *QueryUseCase) WithAudit(queryLog ports.QueryLogStore, events ports.EventPublisher) *QueryUseCase {
	uc.queryLog = queryLog
	uc.events = events
	return uc
}

// WithRerankFallbackHook registers a callback fired whenever a configured
// cross-encoder fails and the fused order is served instead.
func (uc *QueryUseCase) WithRerankFallbackHook(hook func()) *QueryUseCase {
	uc.onRerankFallback = hook
	return uc
}

// Search runs the retrieval half of the pipeline only: expansion, dense and
// sparse search per variant, RRF fusion, optional rerank, truncation.
func (uc *QueryUseCase) Search(ctx context.Context, question string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = uc.opts.TopK
	}

	variants := uc.expander.Expand(question)
	lists := make([][]domain.SearchResult, 0, 2*len(variants))
	for _, variant := range variants {
		queryVector, err := uc.embedder.EmbedQuery(ctx, variant)
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbedding, "embed query", err)
		}
		dense, err := uc.vectorDB.Search(ctx, queryVector, uc.opts.HybridCandidates, filter)
		if err != nil {
			return nil, domain.WrapError(domain.ErrRetrieval, "dense search", err)
		}
		lists = append(lists, dense)

		if sparse := uc.sparse.Search(variant, uc.opts.HybridCandidates); len(sparse) > 0 {
			lists = append(lists, sparse)
		}
	}

	fused := fuseResultsRRF(lists, uc.opts.RRFK)
	fused = trimCandidates(fused, uc.opts.RerankCandidates)
	reranked, fellBack := rerankCandidates(ctx, uc.encoder, question, fused, topK)
	if fellBack && uc.onRerankFallback != nil {
		uc.onRerankFallback()
	}
	return reranked, nil
}

// Query answers a standalone question.
func (uc *QueryUseCase) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	req.History = nil
	return uc.answer(ctx, req)
}

// QueryWithHistory answers a follow-up question, folding prior Q/A turns
// into the prompt.
func (uc *QueryUseCase) QueryWithHistory(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	return uc.answer(ctx, req)
}

func (uc *QueryUseCase) answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	started := time.Now()
	question, filter, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	results, err := uc.Search(ctx, question, req.TopK, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return notFoundResponse(), nil
	}

	rawContext, citations := formatContext(results)
	prompt := buildAnswerPrompt(question, rawContext, req.History)

	generated, err := uc.generator.Generate(ctx, prompt, answerSystem(uc.opts.RequestCitedSources))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}

	answer, validation := validateGrounding(generated, citations)
	confidence := scoreConfidence(results)

	response := &domain.QueryResponse{
		Answer:          answer,
		Citations:       citations,
		Sources:         citationSources(citations),
		Confidence:      confidence.Level,
		ConfidenceScore: &confidence,
		RawContext:      rawContext,
		Validation:      &validation,
	}
	uc.audit(ctx, question, response, time.Since(started))
	return response, nil
}

// QueryStream runs retrieval synchronously, emits one metadata event, then
// chunk events as the generator streams, then one done event carrying the
// validation computed over the assembled text.
func (uc *QueryUseCase) QueryStream(ctx context.Context, req domain.QueryRequest, sink ports.StreamSink) error {
	started := time.Now()
	question, filter, err := normalizeRequest(req)
	if err != nil {
		return err
	}

	results, err := uc.Search(ctx, question, req.TopK, filter)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		if err := sink(domain.StreamEvent{Type: domain.StreamEventMetadata}); err != nil {
			return err
		}
		if err := sink(domain.StreamEvent{Type: domain.StreamEventChunk, Content: refusalAnswer}); err != nil {
			return err
		}
		return sink(domain.StreamEvent{Type: domain.StreamEventDone, Confidence: domain.ConfidenceNone})
	}

	rawContext, citations := formatContext(results)
	if err := sink(domain.StreamEvent{
		Type:      domain.StreamEventMetadata,
		Citations: citations,
		Sources:   citationSources(citations),
	}); err != nil {
		return err
	}

	prompt := buildAnswerPrompt(question, rawContext, req.History)
	var assembled []byte
	var sinkAbort error
	streamErr := uc.generator.GenerateStream(ctx, prompt, answerSystem(uc.opts.RequestCitedSources), func(chunk string) error {
		assembled = append(assembled, chunk...)
		if err := sink(domain.StreamEvent{Type: domain.StreamEventChunk, Content: chunk}); err != nil {
			sinkAbort = err
			return err
		}
		return nil
	})
	if sinkAbort != nil {
		// Caller abandoned the stream; no done event is owed.
		return sinkAbort
	}
	if streamErr != nil {
		if len(assembled) == 0 {
			return domain.WrapError(domain.ErrGeneration, "generate stream", streamErr)
		}
		// An answer was produced; degrade validation instead of failing.
		slog.Warn("stream_interrupted", "error", streamErr, "chars", len(assembled))
		return sink(domain.StreamEvent{Type: domain.StreamEventDone})
	}

	answer, validation := validateGrounding(string(assembled), citations)
	confidence := scoreConfidence(results)
	uc.audit(ctx, question, &domain.QueryResponse{
		Answer:     answer,
		Citations:  citations,
		Confidence: confidence.Level,
		Validation: &validation,
	}, time.Since(started))

	return sink(domain.StreamEvent{
		Type:       domain.StreamEventDone,
		Validation: &validation,
		Confidence: confidence.Level,
	})
}

var errEmptyQuestion = errors.New("question is required")

func normalizeRequest(req domain.QueryRequest) (string, domain.SearchFilter, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", domain.SearchFilter{}, domain.WrapError(domain.ErrInvalidInput, "query", errEmptyQuestion)
	}
	return question, domain.SearchFilter{DocumentType: req.FilterDocumentType}, nil
}

func notFoundResponse() *domain.QueryResponse {
	return &domain.QueryResponse{
		Answer:     refusalAnswer,
		Citations:  []domain.Citation{},
		Sources:    []string{},
		Confidence: domain.ConfidenceNone,
	}
}

// audit records the query log entry and publishes the analytics event.
// Failures are logged and never fail the request.
func (uc *QueryUseCase) audit(ctx context.Context, question string, response *domain.QueryResponse, duration time.Duration) {
	coverage := 0.0
	risk := domain.HallucinationRisk("")
	if response.Validation != nil {
		coverage = response.Validation.CitationCoverage
		risk = response.Validation.HallucinationRisk
	}
	numeric := 0.0
	if response.ConfidenceScore != nil {
		numeric = response.ConfidenceScore.Numeric
	}
	queryID := uuid.NewString()
	now := time.Now().UTC()

	if uc.queryLog != nil {
		entry := domain.QueryLogEntry{
			ID:                queryID,
			Question:          question,
			Answer:            response.Answer,
			Confidence:        response.Confidence,
			ConfidenceNumeric: numeric,
			CitationCount:     len(response.Citations),
			CitationCoverage:  coverage,
			HallucinationRisk: risk,
			DurationMs:        float64(duration.Microseconds()) / 1000.0,
			CreatedAt:         now,
		}
		if err := uc.queryLog.RecordQuery(ctx, entry); err != nil {
			slog.Warn("query_log_failed", "error", err)
		}
	}

	if uc.events != nil {
		event := domain.QueryAnsweredEvent{
			QueryID:           queryID,
			Question:          question,
			Confidence:        response.Confidence,
			CitationCount:     len(response.Citations),
			CitationCoverage:  coverage,
			HallucinationRisk: risk,
			DurationMs:        float64(duration.Microseconds()) / 1000.0,
			AnsweredAt:        now,
		}
		if err := uc.events.PublishQueryAnswered(ctx, event); err != nil {
			slog.Warn("query_event_publish_failed", "error", err)
		}
	}
}
