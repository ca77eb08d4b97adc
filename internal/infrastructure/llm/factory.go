package llm

import (
	"fmt"

	"github.com/hukumnesia/lexqa/internal/core/ports"
	"github.com/hukumnesia/lexqa/internal/infrastructure/llm/ollama"
	"github.com/hukumnesia/lexqa/internal/infrastructure/llm/openaicompat"
	"github.com/hukumnesia/lexqa/internal/infrastructure/resilience"
)

const (
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"
)

// Config selects and parameterizes the answer generator backend.
type Config struct {
	Provider string

	OllamaBaseURL  string
	OllamaGenModel string

	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	Executor *resilience.Executor
}

// NewGenerator builds the answer generator named by cfg.Provider.
func NewGenerator(cfg Config) (ports.AnswerGenerator, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		client := ollama.New(cfg.OllamaBaseURL, cfg.OllamaGenModel, "")
		if cfg.Executor != nil {
			client = client.WithExecutor(cfg.Executor)
		}
		return ollama.NewGenerator(client), nil
	case ProviderOpenAICompat:
		return openaicompat.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
