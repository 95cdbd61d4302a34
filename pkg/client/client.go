// Package client talks to a remote NanoChat server. All operations are plain
// authenticated request/response exchanges; the server exposes no push or
// streaming channel, so reply tracking is layered on top in pkg/chat.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// Client is an authenticated HTTP client for the NanoChat API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the given server. The base URL's trailing slash is
// stripped so endpoint paths can be joined verbatim.
func New(baseURL, apiKey string, options ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, newError(KindConfig, "server URL is not set", nil)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(KindConfig, "API key is not set", nil)
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do performs one authenticated exchange. body is JSON-encoded when non-nil;
// the response is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c == nil || c.httpClient == nil {
		return newError(KindConfig, "client is not initialized", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return newError(KindParse, "failed to encode request body", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return newError(KindNetwork, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newError(KindNetwork, "request failed: "+err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(KindNetwork, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := resp.Status
		var serverErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(data, &serverErr); jsonErr == nil {
			if serverErr.Error != "" {
				message = serverErr.Error
			} else if serverErr.Message != "" {
				message = serverErr.Message
			}
		}
		log.Debug().
			Str("component", "client").
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("server returned error status")
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newError(KindParse, "failed to parse response as JSON", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body any, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

// Validate checks that the server is reachable with the configured credentials.
func (c *Client) Validate(ctx context.Context) error {
	var settings UserSettings
	return c.get(ctx, "/api/db/user-settings", &settings)
}

func queryString(params url.Values) string {
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}
