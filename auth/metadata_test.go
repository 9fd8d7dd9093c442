package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtectedResourceMetadata(t *testing.T) {
	config := testConfig("", "", "")
	handler := NewProtectedResourceMetadataHandler(config)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-protected-resource", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var metadata ProtectedResourceMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metadata))

	assert.Equal(t, "http://gateway.test/mcp", metadata.Resource)
	assert.Equal(t, []string{"http://gateway.test"}, metadata.AuthorizationServers)
	assert.Equal(t, []string{"api://mcp-access"}, metadata.ScopesSupported)
	assert.Equal(t, []string{"header"}, metadata.BearerMethodsSupported)
}

func TestProtectedResourceMetadataMethodNotAllowed(t *testing.T) {
	handler := NewProtectedResourceMetadataHandler(testConfig("", "", ""))

	req := httptest.NewRequest(http.MethodPost, "/.well-known/oauth-protected-resource", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthServerMetadata(t *testing.T) {
	config := testConfig("", "", "")
	handler := NewAuthServerMetadataHandler(config)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var metadata AuthServerMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metadata))

	assert.Equal(t, "http://gateway.test", metadata.Issuer)
	assert.Equal(t, "http://gateway.test/authorize", metadata.AuthorizationEndpoint)
	assert.Equal(t, "http://gateway.test/token", metadata.TokenEndpoint)
	assert.Equal(t, "http://gateway.test/register", metadata.RegistrationEndpoint)
	assert.Equal(t, "http://gateway.test/revoke", metadata.RevocationEndpoint)
	assert.Equal(t, []string{"code"}, metadata.ResponseTypesSupported)
	assert.Equal(t, []string{"authorization_code", "refresh_token"}, metadata.GrantTypesSupported)
	assert.Equal(t, []string{"none", "client_secret_post"}, metadata.TokenEndpointAuthMethodsSupported)
	assert.Equal(t, []string{"S256", "plain"}, metadata.CodeChallengeMethodsSupported)
}
