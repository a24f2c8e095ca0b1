package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client calls a Graph-style content API with a bearer token.
type Client struct {
	baseURL string
	token   string
	headers map[string]string
	client  *http.Client
}

// Config configures the API client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Headers map[string]string
}

// NewClient creates an API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("graph base URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// apiItem is the wire shape of one content item.
type apiItem struct {
	ID       string `json:"id"`
	ItemType string `json:"itemType"`
	Content  string `json:"content"`
}

type itemPage struct {
	Value []apiItem `json:"value"`
}

// fetchItems pulls one category's items. top bounds the item count; depth is
// forwarded as the content-detail hint.
func (c *Client) fetchItems(ctx context.Context, path string, top int, depth string) ([]apiItem, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("failed to build item URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	if top > 0 {
		q.Set("top", strconv.Itoa(top))
	}
	if depth != "" {
		q.Set("detail", depth)
	}
	req.URL.RawQuery = q.Encode()

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("item request failed with status %s", resp.Status)
	}

	var page itemPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode item page: %w", err)
	}
	return page.Value, nil
}
