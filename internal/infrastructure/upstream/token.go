package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

const (
	loginPath = "/login"

	// tokenLifetime is deliberately one hour shorter than the upstream's
	// nominal 24h session lifetime, so a token is never presented close to
	// the upstream's own expiry clock.
	tokenLifetime = 23 * time.Hour
)

// TokenCache holds the current upstream session token and its expiry.
// It guarantees at most one in-flight login system-wide: concurrent callers
// attach to the pending login instead of issuing their own.
//
// Tokens live only in process memory and are never persisted.
type TokenCache struct {
	cfg        *Config
	httpClient *http.Client
	logger     *zap.Logger

	group singleflight.Group
	now   func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenCache creates a token cache backed by the given HTTP client.
func NewTokenCache(cfg *Config, httpClient *http.Client, logger *zap.Logger) *TokenCache {
	return &TokenCache{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Token returns the cached session token, logging in first if none is
// cached or the cached one has expired. Concurrent callers during a login
// all receive the result of that single login.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if c.cfg.Email == "" || c.cfg.Password == "" {
		return "", fmt.Errorf("%w: login credentials are empty", fulfillment.ErrUpstreamNotConfigured)
	}

	c.mu.Lock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	// singleflight both deduplicates concurrent logins and propagates a
	// login failure to every caller waiting on it.
	v, err, _ := c.group.Do("login", func() (any, error) {
		return c.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ClearToken unconditionally invalidates the cache. Used only by the
// 401-retry path in Client.
func (c *TokenCache) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// login performs the actual login call and caches the result on success.
func (c *TokenCache) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(loginRequest{Email: c.cfg.Email, Password: c.cfg.Password})
	if err != nil {
		return "", fmt.Errorf("upstream: failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("upstream: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: login: %v", fulfillment.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("upstream: failed to read login response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: login returned HTTP %d: %s",
			fulfillment.ErrUpstreamAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", fmt.Errorf("%w: malformed login response: %v", fulfillment.ErrUpstreamInvalidResponse, err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("%w: login response missing token", fulfillment.ErrUpstreamInvalidResponse)
	}

	c.mu.Lock()
	c.token = lr.Token
	c.expiresAt = c.now().Add(tokenLifetime)
	c.mu.Unlock()

	c.logger.Debug("Upstream login succeeded",
		zap.Time("expires_at", c.now().Add(tokenLifetime)),
	)

	return lr.Token, nil
}
