package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// maxResponseSize is the maximum allowed response size from the upstream API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Error is a non-2xx upstream response, carrying the status code and body
// for diagnosis. It is not retried by the client.
type Error struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *Error) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("upstream: HTTP %d: %s", e.StatusCode, body)
}

// Client is the authenticated request wrapper around the upstream API.
// It attaches the cached session token to every call; on a 401 it clears
// the token cache, re-authenticates, and retries the call exactly once.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	tokens     *TokenCache
	logger     *zap.Logger
}

// NewClient creates an upstream client with the given configuration.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     NewTokenCache(cfg, httpClient, logger),
		logger:     logger,
	}, nil
}

// Tokens exposes the token cache, mainly for tests.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// Do issues an authenticated call and returns the response body.
// A 401 triggers one token refresh and one retry; any further failure is
// returned as-is, bounding the behavior to a single re-authentication per
// logical call.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	status, respBody, err := c.roundTrip(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Debug("Upstream rejected token, re-authenticating once",
			zap.String("method", method),
			zap.String("path", path),
		)
		c.tokens.ClearToken()
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		status, respBody, err = c.roundTrip(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: fresh token rejected (HTTP 401)", fulfillment.ErrUpstreamAuthFailed)
		}
	}

	if status < 200 || status >= 300 {
		return nil, &Error{StatusCode: status, Body: string(respBody)}
	}
	return respBody, nil
}

// roundTrip performs one HTTP exchange with the token attached.
func (c *Client) roundTrip(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("upstream: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("upstream: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", fulfillment.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("upstream: failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
