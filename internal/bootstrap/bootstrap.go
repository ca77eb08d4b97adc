package bootstrap

import (
	"context"
	"fmt"

	"github.com/hukumnesia/lexqa/internal/config"
	"github.com/hukumnesia/lexqa/internal/core/ports"
	"github.com/hukumnesia/lexqa/internal/core/usecase"
	"github.com/hukumnesia/lexqa/internal/infrastructure/lexicon"
	"github.com/hukumnesia/lexqa/internal/infrastructure/llm"
	"github.com/hukumnesia/lexqa/internal/infrastructure/llm/ollama"
	"github.com/hukumnesia/lexqa/internal/infrastructure/queue/nats"
	"github.com/hukumnesia/lexqa/internal/infrastructure/repository/postgres"
	"github.com/hukumnesia/lexqa/internal/infrastructure/rerank/tei"
	"github.com/hukumnesia/lexqa/internal/infrastructure/resilience"
	"github.com/hukumnesia/lexqa/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	QuerySvc  *usecase.QueryUseCase
	VectorDB  *qdrant.Client
	Publisher *nats.Publisher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	records, err := usecase.LoadCorpusSnapshot(ctx, vectorDB)
	if err != nil {
		return nil, fmt.Errorf("load corpus snapshot: %w", err)
	}
	sparse := usecase.NewSparseIndex(records)

	synonyms, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	expander := usecase.NewQueryExpander(synonyms)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel).WithExecutor(executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	generator, err := llm.NewGenerator(llm.Config{
		Provider:       cfg.LLMProvider,
		OllamaBaseURL:  cfg.OllamaURL,
		OllamaGenModel: cfg.OllamaGenModel,
		OpenAIBaseURL:  cfg.OpenAICompatBaseURL,
		OpenAIAPIKey:   cfg.OpenAICompatAPIKey,
		OpenAIModel:    cfg.OpenAICompatModel,
		Executor:       executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}

	var encoder ports.CrossEncoder
	if cfg.RerankerURL != "" {
		encoder = tei.New(cfg.RerankerURL)
	}

	querySvc := usecase.NewQueryUseCase(expander, embedder, vectorDB, sparse, encoder, generator, usecase.Options{
		TopK:                cfg.RAGTopK,
		HybridCandidates:    cfg.RAGHybridCandidates,
		RerankCandidates:    cfg.RerankerTopN,
		RRFK:                cfg.RAGFusionRRFK,
		RequestCitedSources: true,
	})

	closeFns := make([]func(), 0, 2)
	var publisher *nats.Publisher
	if cfg.AuditEnabled {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		queryLog := postgres.NewQueryLogRepository(db)
		if err := queryLog.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		closeFns = append(closeFns, func() { _ = db.Close() })

		publisher, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		closeFns = append(closeFns, publisher.Close)

		querySvc = querySvc.WithAudit(queryLog, publisher)
	}

	return &App{
		Config:    cfg,
		QuerySvc:  querySvc,
		VectorDB:  vectorDB,
		Publisher: publisher,

		closeFn: func() {
			for i := len(closeFns) - 1; i >= 0; i-- {
				closeFns[i]()
			}
		},
	}, nil
}

// Health reports corpus readiness for the liveness endpoint.
func (a *App) Health(ctx context.Context) (string, bool) {
	status, err := usecase.VerifyCorpus(ctx, a.VectorDB)
	if err != nil {
		return "degraded: " + err.Error(), false
	}
	return status, status != "collection missing"
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
