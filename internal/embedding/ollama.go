package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultOllamaModel   = "nomic-embed-text"
	DefaultOllamaBaseURL = "http://localhost:11434"
)

// OllamaProvider embeds texts with a local Ollama server.
type OllamaProvider struct {
	llm   *ollama.LLM
	model string
}

// NewOllamaProvider creates a provider for the given model and server.
func NewOllamaProvider(model, baseURL string) (*OllamaProvider, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaProvider{llm: llm, model: model}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama/" + p.model
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := p.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return embeddings, nil
}
