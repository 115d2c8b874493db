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
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOpenAIDims  = 1536
)

// OpenAIEngine computes embeddings through an OpenAI-compatible API.
type OpenAIEngine struct {
	Client  *http.Client
	BaseURL string
	Model   string
	APIKey  string
	Dims    int
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding vector for text.
func (e *OpenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil {
		return nil, errors.New("openai engine is not configured")
	}
	if strings.TrimSpace(e.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is required")
	}

	payload, err := json.Marshal(openAIEmbedRequest{Model: e.model(), Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL()+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("embedding provider error: %s", result.Error.Message)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response was empty")
	}
	return result.Data[0].Embedding, nil
}

// Dimensions returns the vector size produced by the configured model.
func (e *OpenAIEngine) Dimensions() int {
	if e != nil && e.Dims > 0 {
		return e.Dims
	}
	return defaultOpenAIDims
}

func (e *OpenAIEngine) baseURL() string {
	if e != nil && e.BaseURL != "" {
		return strings.TrimSuffix(e.BaseURL, "/")
	}
	return defaultOpenAIURL
}

func (e *OpenAIEngine) model() string {
	if e != nil && e.Model != "" {
		return e.Model
	}
	return defaultOpenAIModel
}

func (e *OpenAIEngine) client() *http.Client {
	if e != nil && e.Client != nil {
		return e.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}
