package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOllamaEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer server.Close()

	engine := &OllamaEngine{BaseURL: server.URL, Model: "nomic-embed-text"}
	vec, err := engine.Embed(context.Background(), "bitcoin rally")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllamaEmbedEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	engine := &OllamaEngine{BaseURL: server.URL}
	_, err := engine.Embed(context.Background(), "text")
	require.Error(t, err)
}

func TestOllamaEmbedRequiresText(t *testing.T) {
	engine := &OllamaEngine{}
	_, err := engine.Embed(context.Background(), "   ")
	require.Error(t, err)
}

func TestOllamaPullModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pull", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	engine := &OllamaEngine{BaseURL: server.URL, Model: "nomic-embed-text"}
	require.NoError(t, engine.PullModel(context.Background()))
}

func TestOpenAIEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.6]}]}`))
	}))
	defer server.Close()

	engine := &OpenAIEngine{BaseURL: server.URL, APIKey: "sk-test"}
	vec, err := engine.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 0.6}, vec)
}

func TestOpenAIEmbedRequiresKey(t *testing.T) {
	engine := &OpenAIEngine{}
	_, err := engine.Embed(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestNewEngineSelection(t *testing.T) {
	engine, err := New(Options{Provider: "ollama", Model: "m"})
	require.NoError(t, err)
	require.IsType(t, &OllamaEngine{}, engine)

	engine, err = New(Options{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIEngine{}, engine)

	// Default provider is ollama.
	engine, err = New(Options{})
	require.NoError(t, err)
	require.IsType(t, &OllamaEngine{}, engine)

	_, err = New(Options{Provider: "bedrock"})
	require.Error(t, err)
}

func TestDimensionsDefaults(t *testing.T) {
	require.Equal(t, 768, (&OllamaEngine{}).Dimensions())
	require.Equal(t, 1536, (&OpenAIEngine{}).Dimensions())
	require.Equal(t, 384, (&OllamaEngine{Dims: 384}).Dimensions())
}
