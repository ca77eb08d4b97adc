package ports

import (
	"context"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

// StreamSink receives query_stream events in order: one metadata event,
// zero or more chunk events, then one done event. Returning a non-nil
// error stops the stream; no further events are delivered.
type StreamSink func(event domain.StreamEvent) error

// LegalQueryService is the inbound contract for grounded legal question
// answering.
type LegalQueryService interface {
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
	QueryWithHistory(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
	QueryStream(ctx context.Context, req domain.QueryRequest, sink StreamSink) error
}

// RetrievalService exposes the hybrid retrieval stage without generation,
// for tooling that only needs ranked evidence.
type RetrievalService interface {
	Search(ctx context.Context, question string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error)
}
