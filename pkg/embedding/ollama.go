package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig represents the configuration for an Ollama embedding backend.
type OllamaConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// OllamaBackend embeds text through a local Ollama server.
type OllamaBackend struct {
	Config OllamaConfig
	llm    *ollama.LLM
}

func NewOllamaBackend(config OllamaConfig) (*OllamaBackend, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}

	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	llm, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}

	return &OllamaBackend{
		Config: config,
		llm:    llm,
	}, nil
}

func (o *OllamaBackend) Name() string { return "ollama" }

func (o *OllamaBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := o.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("ollama embedding: no vectors returned")
	}
	return embeddings[0], nil
}
