// Package embed turns cleaned message text into dense vectors through an
// external embedding provider.
package embed

import (
	"context"
	"fmt"
	"strings"
)

// Engine computes an embedding vector for a piece of text.
type Engine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Options selects and configures an embedding provider.
type Options struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
}

// New builds an engine for the configured provider.
func New(opts Options) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "ollama":
		return &OllamaEngine{
			BaseURL: opts.BaseURL,
			Model:   opts.Model,
			Dims:    opts.Dimensions,
		}, nil
	case "openai":
		return &OpenAIEngine{
			BaseURL: opts.BaseURL,
			Model:   opts.Model,
			APIKey:  opts.APIKey,
			Dims:    opts.Dimensions,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", opts.Provider)
	}
}
