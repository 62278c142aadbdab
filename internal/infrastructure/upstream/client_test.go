package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// authServer serves /login with incrementing tokens and delegates every
// other path to resource.
func authServer(loginCount *int64, resource http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			n := atomic.AddInt64(loginCount, 1)
			json.NewEncoder(w).Encode(loginResponse{Token: fmt.Sprintf("tok-%d", n)})
			return
		}
		resource(w, r)
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(testConfig(baseURL), zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestClient_AttachesToken(t *testing.T) {
	var loginCount int64
	server := authServer(&loginCount, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`))
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	body, err := client.Do(context.Background(), http.MethodGet, "/payment-methods", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int64(1), loginCount)
}

func TestClient_RetriesOnceOn401(t *testing.T) {
	var loginCount, resourceCalls int64
	server := authServer(&loginCount, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&resourceCalls, 1)
		// The first token is stale; only the re-issued one is accepted.
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"status":"Pending Fulfillment"}`))
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	body, err := client.Do(context.Background(), http.MethodGet, "/sales-order/1", nil)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Pending Fulfillment")

	assert.Equal(t, int64(2), loginCount, "initial login plus one re-authentication")
	assert.Equal(t, int64(2), resourceCalls, "original call plus one retry")
}

func TestClient_401RetryBound(t *testing.T) {
	var loginCount, resourceCalls int64
	server := authServer(&loginCount, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&resourceCalls, 1)
		// Even fresh tokens are rejected.
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Do(context.Background(), http.MethodGet, "/sales-order/1", nil)
	assert.ErrorIs(t, err, fulfillment.ErrUpstreamAuthFailed)

	assert.Equal(t, int64(2), loginCount, "exactly one re-authentication attempt, never loops")
	assert.Equal(t, int64(2), resourceCalls)
}

func TestClient_Non2xxIsTypedAndNotRetried(t *testing.T) {
	var loginCount, resourceCalls int64
	server := authServer(&loginCount, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&resourceCalls, 1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream maintenance"))
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Do(context.Background(), http.MethodGet, "/sales-order/1", nil)
	require.Error(t, err)

	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
	assert.Contains(t, ue.Body, "upstream maintenance")
	assert.Equal(t, int64(1), resourceCalls, "non-401 failures are not retried")
}

func TestClient_NetworkFailure(t *testing.T) {
	var loginCount int64
	server := authServer(&loginCount, func(w http.ResponseWriter, r *http.Request) {})
	client := newTestClient(t, server.URL)

	// Prime the token, then kill the server.
	_, err := client.Tokens().Token(context.Background())
	require.NoError(t, err)
	server.Close()

	_, err = client.Do(context.Background(), http.MethodGet, "/payment-methods", nil)
	assert.ErrorIs(t, err, fulfillment.ErrUpstreamUnavailable)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	cfg := testConfig("http://localhost:0")
	cfg.Password = ""
	_, err := NewClient(cfg, zap.NewNop())
	assert.ErrorIs(t, err, fulfillment.ErrUpstreamNotConfigured)
}
