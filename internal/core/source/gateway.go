package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gramsift/gramsift/internal/core"
)

// GatewayClient fetches message batches from a scraper gateway sidecar.
// The gateway owns the upstream client session and auth; this client only
// speaks its JSON API and translates its responses into fetch outcomes.
type GatewayClient struct {
	Client  *http.Client
	BaseURL string
	Token   string
	Clock   func() time.Time
}

type gatewayMessage struct {
	ID     int64  `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Date   int64  `json:"date"`
}

type gatewayPage struct {
	Messages []gatewayMessage `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// Fetch retrieves the next batch of messages after the cursor.
func (c *GatewayClient) Fetch(ctx context.Context, req core.FetchRequest) (core.FetchOutcome, error) {
	if c == nil {
		return core.FetchOutcome{}, errors.New("gateway client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	name := strings.TrimSpace(string(req.Source))
	if name == "" {
		return core.FetchOutcome{}, errors.New("source is required")
	}

	base := c.baseURL()
	target := base.ResolveReference(&url.URL{
		Path: "/v1/sources/" + url.PathEscape(name) + "/messages",
		RawQuery: url.Values{
			"after_id": {strconv.FormatInt(req.AfterCursor, 10)},
			"limit":    {strconv.Itoa(req.BatchSize)},
		}.Encode(),
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return core.FetchOutcome{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return core.FetchOutcome{}, ctx.Err()
		}
		return core.TransientOutcome(err), nil
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch {
	case resp.StatusCode == http.StatusOK:
		var page gatewayPage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return core.TransientOutcome(fmt.Errorf("decode gateway response: %w", err)), nil
		}
		if len(page.Messages) == 0 {
			return core.ExhaustedOutcome(), nil
		}
		return core.Success(c.convert(req.Source, page.Messages)), nil

	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfterHeader(resp)
		return core.RateLimitedOutcome(wait), nil

	case resp.StatusCode == http.StatusNotFound:
		return core.FetchOutcome{}, fmt.Errorf("source %q not found on gateway", name)

	case resp.StatusCode >= 500:
		return core.TransientOutcome(fmt.Errorf("gateway returned %d", resp.StatusCode)), nil

	default:
		return core.FetchOutcome{}, fmt.Errorf("unexpected gateway response %d", resp.StatusCode)
	}
}

func (c *GatewayClient) convert(source core.SourceID, raw []gatewayMessage) []core.Message {
	now := c.now()
	messages := make([]core.Message, 0, len(raw))
	for _, m := range raw {
		messages = append(messages, core.Message{
			ID:        m.ID,
			Source:    source,
			Sender:    m.Sender,
			Text:      m.Text,
			Date:      time.Unix(m.Date, 0).UTC(),
			ScrapedAt: now,
		})
	}
	return messages
}

func (c *GatewayClient) baseURL() *url.URL {
	if c != nil && c.BaseURL != "" {
		if parsed, err := url.Parse(c.BaseURL); err == nil {
			return parsed
		}
	}
	parsed, _ := url.Parse("http://localhost:8700")
	return parsed
}

func (c *GatewayClient) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed)
	}

	return 0
}
