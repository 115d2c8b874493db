package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gramsift/gramsift/internal/core"
)

func TestGatewayFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/sources/CryptoNews/messages", r.URL.Path)
		require.Equal(t, "42", r.URL.Query().Get("after_id"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		require.Equal(t, "Bearer sekret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[
			{"id":43,"sender":"alice","text":"bitcoin is up","date":1748779200},
			{"id":44,"sender":"bob","text":"hello","date":1748779260}
		],"has_more":true}`))
	}))
	defer server.Close()

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &GatewayClient{
		BaseURL: server.URL,
		Token:   "sekret",
		Clock:   func() time.Time { return fixed },
	}

	outcome, err := client.Fetch(context.Background(), core.FetchRequest{
		Source:      "CryptoNews",
		AfterCursor: 42,
		BatchSize:   5,
	})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeSuccess, outcome.Kind)
	require.Len(t, outcome.Messages, 2)
	require.Equal(t, int64(43), outcome.Messages[0].ID)
	require.Equal(t, core.SourceID("CryptoNews"), outcome.Messages[0].Source)
	require.Equal(t, "alice", outcome.Messages[0].Sender)
	require.Equal(t, fixed, outcome.Messages[0].ScrapedAt)
	require.Equal(t, time.Unix(1748779200, 0).UTC(), outcome.Messages[0].Date)
}

func TestGatewayFetchEmptyIsExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[],"has_more":false}`))
	}))
	defer server.Close()

	client := &GatewayClient{BaseURL: server.URL}
	outcome, err := client.Fetch(context.Background(), core.FetchRequest{Source: "quiet", BatchSize: 10})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeExhausted, outcome.Kind)
}

func TestGatewayFetchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := &GatewayClient{BaseURL: server.URL}
	outcome, err := client.Fetch(context.Background(), core.FetchRequest{Source: "busy", BatchSize: 10})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeRateLimited, outcome.Kind)
	require.Equal(t, 30*time.Second, outcome.RetryAfter)
}

func TestGatewayFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := &GatewayClient{BaseURL: server.URL}
	outcome, err := client.Fetch(context.Background(), core.FetchRequest{Source: "flaky", BatchSize: 10})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeTransientFailure, outcome.Kind)
	require.Error(t, outcome.Err)
}

func TestGatewayFetchUnknownSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := &GatewayClient{BaseURL: server.URL}
	_, err := client.Fetch(context.Background(), core.FetchRequest{Source: "ghost", BatchSize: 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestGatewayFetchRequiresSource(t *testing.T) {
	client := &GatewayClient{}
	_, err := client.Fetch(context.Background(), core.FetchRequest{Source: "  "})
	require.Error(t, err)
}

func TestGatewayFetchConnectionRefusedIsTransient(t *testing.T) {
	client := &GatewayClient{BaseURL: "http://127.0.0.1:1", Client: &http.Client{Timeout: time.Second}}
	outcome, err := client.Fetch(context.Background(), core.FetchRequest{Source: "alpha", BatchSize: 1})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeTransientFailure, outcome.Kind)
}
