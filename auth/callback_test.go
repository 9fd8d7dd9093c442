package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockIdPTokenEndpoint returns an httptest server that mimics the IdP
// token endpoint and records the form it received.
func newMockIdPTokenEndpoint(t *testing.T, status int, response map[string]any) (*httptest.Server, *url.Values) {
	t.Helper()

	var captured url.Values
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		captured = r.PostForm
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)

	return server, &captured
}

func storeTransaction(flows *FlowStore, state string) *AuthTransaction {
	txn := &AuthTransaction{
		ProxyState:          state,
		ClientID:            "c1",
		ClientRedirectURI:   "https://app/cb",
		ClientState:         "s1",
		ClientCodeChallenge: "client-challenge",
		ClientCodeMethod:    "S256",
		ProxyCodeVerifier:   "proxy-verifier",
		RequestedScope:      "api://mcp-access",
		CreatedAt:           time.Now(),
	}
	flows.StoreTransaction(txn)
	return txn
}

func TestCallbackHappyPath(t *testing.T) {
	idp, captured := newMockIdPTokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "JWT1",
		"refresh_token": "R1",
		"expires_in":    3600,
		"scope":         "api://mcp-access",
	})

	config := testConfig("https://idp.test/authorize", idp.URL, "")
	flows := NewFlowStore()
	handler := NewCallbackHandler(config, flows, testLogger())

	storeTransaction(flows, "proxy-state-1")

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=idpCode&state=proxy-state-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	// The IdP exchange used the gateway credentials and its own verifier
	assert.Equal(t, "gateway-client-id", captured.Get("client_id"))
	assert.Equal(t, "gateway-client-secret", captured.Get("client_secret"))
	assert.Equal(t, "idpCode", captured.Get("code"))
	assert.Equal(t, "authorization_code", captured.Get("grant_type"))
	assert.Equal(t, "http://gateway.test/auth/callback", captured.Get("redirect_uri"))
	assert.Equal(t, "proxy-verifier", captured.Get("code_verifier"))

	// Redirect fidelity: registered URI verbatim, only code and state added
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "https", location.Scheme)
	assert.Equal(t, "app", location.Host)
	assert.Equal(t, "/cb", location.Path)

	q := location.Query()
	assert.Len(t, q, 2)
	assert.Equal(t, "s1", q.Get("state"))

	proxyCode := q.Get("code")
	require.NotEmpty(t, proxyCode)

	// The code record carries the IdP tokens and the client PKCE commitment
	rec2, ok := flows.ConsumeCode(proxyCode)
	require.True(t, ok)
	assert.Equal(t, "JWT1", rec2.AccessToken)
	assert.Equal(t, "R1", rec2.RefreshToken)
	assert.Equal(t, 3600, rec2.ExpiresIn)
	assert.Equal(t, "client-challenge", rec2.ClientCodeChallenge)
	assert.Equal(t, "S256", rec2.ClientCodeMethod)
}

func TestCallbackOmitsEmptyClientState(t *testing.T) {
	idp, _ := newMockIdPTokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token": "JWT1",
	})

	config := testConfig("", idp.URL, "")
	flows := NewFlowStore()
	handler := NewCallbackHandler(config, flows, testLogger())

	txn := storeTransaction(flows, "proxy-state-1")
	txn.ClientState = ""

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=idpCode&state=proxy-state-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	q := location.Query()
	assert.Len(t, q, 1)
	assert.False(t, q.Has("state"))
}

func TestCallbackUnknownState(t *testing.T) {
	config := testConfig("", "https://idp.test/token", "")
	handler := NewCallbackHandler(config, NewFlowStore(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=x&state=never_issued", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp OAuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrorInvalidState, resp.Error)
}

func TestCallbackIdPErrorPassthrough(t *testing.T) {
	config := testConfig("", "https://idp.test/token", "")
	handler := NewCallbackHandler(config, NewFlowStore(), testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/auth/callback?error=access_denied&error_description=user+cancelled", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp OAuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access_denied", resp.Error)
	assert.Equal(t, "user cancelled", resp.ErrorDescription)
}

func TestCallbackIdPTokenErrorConsumesTransaction(t *testing.T) {
	idp, _ := newMockIdPTokenEndpoint(t, http.StatusBadRequest, map[string]any{
		"error":             "invalid_grant",
		"error_description": "code expired",
	})

	config := testConfig("", idp.URL, "")
	flows := NewFlowStore()
	handler := NewCallbackHandler(config, flows, testLogger())

	storeTransaction(flows, "proxy-state-1")

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=idpCode&state=proxy-state-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp OAuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_grant", resp.Error)
	assert.Equal(t, "code expired", resp.ErrorDescription)

	// Even on failure the transaction is gone: the IdP code cannot be replayed
	_, ok := flows.ConsumeTransaction("proxy-state-1")
	assert.False(t, ok)
}

// Two concurrent callbacks for the same state: exactly one 302, one 400.
func TestCallbackConcurrentSameState(t *testing.T) {
	idp, _ := newMockIdPTokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token": "JWT1",
	})

	config := testConfig("", idp.URL, "")
	flows := NewFlowStore()
	handler := NewCallbackHandler(config, flows, testLogger())

	storeTransaction(flows, "race-state")

	var redirects, rejections atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=idpCode&state=race-state", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			switch rec.Code {
			case http.StatusFound:
				redirects.Add(1)
			case http.StatusBadRequest:
				rejections.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), redirects.Load())
	assert.Equal(t, int32(1), rejections.Load())
}

func TestCallbackExpiredTransaction(t *testing.T) {
	config := testConfig("", "https://idp.test/token", "")
	flows := NewFlowStore()
	handler := NewCallbackHandler(config, flows, testLogger())

	now := time.Now()
	flows.now = func() time.Time { return now }

	txn := storeTransaction(flows, "stale-state")
	txn.CreatedAt = now.Add(-TransactionTTL - time.Second)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=x&state=stale-state", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp OAuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrorInvalidState, resp.Error)
}
