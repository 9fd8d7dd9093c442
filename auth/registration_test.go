package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerClient(t *testing.T, handler *RegistrationHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRegistrationHappyPath(t *testing.T) {
	config := testConfig("", "", "")
	storage := NewInMemoryClientStorage()
	handler := NewRegistrationHandler(config, storage, testLogger())

	rec := registerClient(t, handler, `{"client_name":"X","redirect_uris":["https://app/cb"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ClientRegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.ClientID)
	assert.Equal(t, "X", resp.ClientName)
	assert.Equal(t, []string{"https://app/cb"}, resp.RedirectURIs)
	// Defaults fill everything the request omitted
	assert.Equal(t, "none", resp.TokenEndpointAuthMethod)
	assert.Equal(t, []string{"authorization_code"}, resp.GrantTypes)
	assert.Equal(t, []string{"code"}, resp.ResponseTypes)
	assert.Equal(t, config.APIScope, resp.Scope)

	// The registration is retrievable and stored verbatim
	stored, err := storage.GetClient(resp.ClientID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app/cb"}, stored.RedirectURIs)
}

func TestRegistrationMintsDistinctClientIDs(t *testing.T) {
	handler := NewRegistrationHandler(testConfig("", "", ""), NewInMemoryClientStorage(), testLogger())

	ids := make(map[string]bool)
	for i := 0; i < 10; i++ {
		rec := registerClient(t, handler, `{"redirect_uris":["https://app/cb"]}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp ClientRegistrationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.False(t, ids[resp.ClientID])
		ids[resp.ClientID] = true
	}
}

func TestRegistrationValidation(t *testing.T) {
	handler := NewRegistrationHandler(testConfig("", "", ""), NewInMemoryClientStorage(), testLogger())

	tests := []struct {
		name string
		body string
	}{
		{"missing redirect_uris", `{"client_name":"X"}`},
		{"empty redirect_uri", `{"redirect_uris":[""]}`},
		{"invalid grant type", `{"redirect_uris":["https://app/cb"],"grant_types":["implicit"]}`},
		{"invalid response type", `{"redirect_uris":["https://app/cb"],"response_types":["token"]}`},
		{"invalid auth method", `{"redirect_uris":["https://app/cb"],"token_endpoint_auth_method":"private_key_jwt"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := registerClient(t, handler, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp OAuthError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, ErrorInvalidClientMetadata, resp.Error)
		})
	}
}

func TestRegistrationRejectsBadJSON(t *testing.T) {
	handler := NewRegistrationHandler(testConfig("", "", ""), NewInMemoryClientStorage(), testLogger())

	rec := registerClient(t, handler, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationMethodNotAllowed(t *testing.T) {
	handler := NewRegistrationHandler(testConfig("", "", ""), NewInMemoryClientStorage(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
