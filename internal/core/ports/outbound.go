package ports

import (
	"context"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

// VectorStore performs approximate nearest-neighbor search over the indexed
// corpus and exposes the snapshot scroll used once at startup.
type VectorStore interface {
	CollectionExists(ctx context.Context) (bool, error)
	PointCount(ctx context.Context) (uint64, error)
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.SearchResult, error)
	ScrollAll(ctx context.Context) ([]domain.CorpusRecord, error)
}

// Embedder builds the query vector for dense search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator is the pluggable language-model backend. GenerateStream
// delivers chunks in transport order through onChunk; a non-nil onChunk
// error stops the stream.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt, systemMessage string) (string, error)
	GenerateStream(ctx context.Context, prompt, systemMessage string, onChunk func(chunk string) error) error
}

// CrossEncoder jointly scores (query, text) pairs for relevance. Optional:
// a nil CrossEncoder means the rerank stage only truncates.
type CrossEncoder interface {
	Predict(ctx context.Context, query string, texts []string) ([]float64, error)
}

// QueryLogStore persists the per-query audit record. Best-effort at the
// call site: failures must not fail the query.
type QueryLogStore interface {
	RecordQuery(ctx context.Context, entry domain.QueryLogEntry) error
}

// EventPublisher emits analytics events for the dashboard collaborator.
type EventPublisher interface {
	PublishQueryAnswered(ctx context.Context, event domain.QueryAnsweredEvent) error
}
