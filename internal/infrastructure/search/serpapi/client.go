package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://serpapi.com"

// Client is a thin SerpAPI transport shared by the Lens and Shopping
// backends.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Options struct {
	APIKey string
	// BaseURL overrides the SerpAPI endpoint; tests point it at a local
	// server.
	BaseURL string
	Timeout time.Duration
}

func New(options Options) (*Client, error) {
	if strings.TrimSpace(options.APIKey) == "" {
		return nil, fmt.Errorf("serpapi: api key is required")
	}
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		apiKey:     options.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) getJSON(ctx context.Context, params url.Values, out any, operation string) error {
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("serpapi %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return formatHTTPError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("serpapi %s status: %s", operation, resp.Status)
	}
	return fmt.Errorf("serpapi %s status: %s: %s", operation, resp.Status, msg)
}
