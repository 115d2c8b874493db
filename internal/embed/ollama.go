package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
	defaultOllamaDims  = 768
)

// OllamaEngine computes embeddings through a local Ollama server.
type OllamaEngine struct {
	Client  *http.Client
	BaseURL string
	Model   string
	Dims    int
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// PullModel asks the server to fetch the model if it is not present.
func (e *OllamaEngine) PullModel(ctx context.Context) error {
	if e == nil {
		return errors.New("ollama engine is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(map[string]string{"name": e.model()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL()+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create model pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client().Do(req)
	if err != nil {
		return fmt.Errorf("pull model %q: %w", e.model(), err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull model %q: %s", e.model(), strings.TrimSpace(string(body)))
	}

	// The pull endpoint streams progress; drain it to completion.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("pull model %q: %w", e.model(), err)
	}
	return nil
}

// Embed returns the embedding vector for text.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil {
		return nil, errors.New("ollama engine is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is required")
	}

	payload, err := json.Marshal(ollamaEmbedRequest{Model: e.model(), Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL()+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, errors.New("embedding response was empty")
	}
	return result.Embedding, nil
}

// Dimensions returns the vector size produced by the configured model.
func (e *OllamaEngine) Dimensions() int {
	if e != nil && e.Dims > 0 {
		return e.Dims
	}
	return defaultOllamaDims
}

func (e *OllamaEngine) baseURL() string {
	if e != nil && e.BaseURL != "" {
		return strings.TrimSuffix(e.BaseURL, "/")
	}
	return defaultOllamaURL
}

func (e *OllamaEngine) model() string {
	if e != nil && e.Model != "" {
		return e.Model
	}
	return defaultOllamaModel
}

func (e *OllamaEngine) client() *http.Client {
	if e != nil && e.Client != nil {
		return e.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}
