// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"encoding/json"
	"net/http"
)

// ProtectedResourceMetadataHandler handles requests for OAuth 2.0 Protected Resource Metadata
// Serves the /.well-known/oauth-protected-resource endpoint per RFC 9728
type ProtectedResourceMetadataHandler struct {
	config *Config
}

// NewProtectedResourceMetadataHandler creates a new handler for protected resource metadata
func NewProtectedResourceMetadataHandler(config *Config) *ProtectedResourceMetadataHandler {
	return &ProtectedResourceMetadataHandler{
		config: config,
	}
}

// ServeHTTP implements http.Handler
func (h *ProtectedResourceMetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The gateway itself is the authorization server (proxy pattern)
	metadata := ProtectedResourceMetadata{
		Resource: h.config.ResourceURL(),
		AuthorizationServers: []string{
			h.config.BaseURL,
		},
		ScopesSupported: []string{h.config.APIScope},
		BearerMethodsSupported: []string{
			"header",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// AuthServerMetadataHandler handles requests for Authorization Server Metadata
// per RFC 8414. The gateway advertises its own endpoints; the IdP stays
// hidden behind them.
type AuthServerMetadataHandler struct {
	config *Config
}

// NewAuthServerMetadataHandler creates a new handler for auth server metadata
func NewAuthServerMetadataHandler(config *Config) *AuthServerMetadataHandler {
	return &AuthServerMetadataHandler{
		config: config,
	}
}

// ServeHTTP implements http.Handler
func (h *AuthServerMetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metadata := AuthServerMetadata{
		Issuer:                h.config.BaseURL,
		AuthorizationEndpoint: h.config.BaseURL + "/authorize",
		TokenEndpoint:         h.config.BaseURL + "/token",
		RegistrationEndpoint:  h.config.BaseURL + "/register",
		RevocationEndpoint:    h.config.BaseURL + "/revoke",
		ScopesSupported:       []string{h.config.APIScope},
		ResponseTypesSupported: []string{
			"code",
		},
		GrantTypesSupported: []string{
			"authorization_code",
			"refresh_token",
		},
		TokenEndpointAuthMethodsSupported: []string{
			"none",
			"client_secret_post",
		},
		CodeChallengeMethodsSupported: []string{
			"S256",
			"plain",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
