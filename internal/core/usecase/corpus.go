package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hukumnesia/lexqa/internal/core/domain"
	"github.com/hukumnesia/lexqa/internal/core/ports"
)

// LoadCorpusSnapshot scrolls every indexed record out of the vector store
// once at startup. Records with an empty text payload are skipped so the
// sparse index never carries un-scorable entries.
func LoadCorpusSnapshot(ctx context.Context, store ports.VectorStore) ([]domain.CorpusRecord, error) {
	exists, err := store.CollectionExists(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "check collection", err)
	}
	if !exists {
		slog.Warn("corpus_collection_missing")
		return nil, nil
	}

	records, err := store.ScrollAll(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "scroll corpus", err)
	}

	out := make([]domain.CorpusRecord, 0, len(records))
	skipped := 0
	for _, record := range records {
		if strings.TrimSpace(record.Text) == "" {
			skipped++
			continue
		}
		out = append(out, record)
	}
	if skipped > 0 {
		slog.Warn("corpus_records_skipped", "skipped", skipped, "loaded", len(out))
	}
	slog.Info("corpus_snapshot_loaded", "records", len(out))
	return out, nil
}

// VerifyCorpus reports a human-readable status line for health checks.
func VerifyCorpus(ctx context.Context, store ports.VectorStore) (string, error) {
	exists, err := store.CollectionExists(ctx)
	if err != nil {
		return "", domain.WrapError(domain.ErrRetrieval, "check collection", err)
	}
	if !exists {
		return "collection missing", nil
	}
	count, err := store.PointCount(ctx)
	if err != nil {
		return "", domain.WrapError(domain.ErrRetrieval, "count points", err)
	}
	return fmt.Sprintf("%d points indexed", count), nil
}
