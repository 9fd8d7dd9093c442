package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TokenEndpointHandler handles OAuth 2.1 token requests: redeeming proxy
// codes against the client's PKCE commitment, and proxying refresh-token
// grants to the IdP.
type TokenEndpointHandler struct {
	config     *Config
	flows      *FlowStore
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTokenEndpointHandler creates a new token endpoint handler
func NewTokenEndpointHandler(config *Config, flows *FlowStore, logger *zap.Logger) *TokenEndpointHandler {
	return &TokenEndpointHandler{
		config: config,
		flows:  flows,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ServeHTTP implements http.Handler
func (h *TokenEndpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, ErrorInvalidRequest, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.sendError(w, ErrorInvalidRequest, "Invalid form data", http.StatusBadRequest)
		return
	}

	switch r.FormValue("grant_type") {
	case "authorization_code":
		h.handleAuthorizationCode(w, r)
	case "refresh_token":
		h.handleRefreshToken(w, r)
	default:
		h.sendError(w, ErrorUnsupportedGrantType, "Supported grant types: authorization_code, refresh_token", http.StatusBadRequest)
	}
}

// handleAuthorizationCode redeems a proxy code for the IdP tokens stored in
// the callback. The code is consumed before any verification so a failed
// attempt burns it.
func (h *TokenEndpointHandler) handleAuthorizationCode(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	if code == "" {
		h.sendError(w, ErrorInvalidRequest, "code is required", http.StatusBadRequest)
		return
	}

	rec, ok := h.flows.ConsumeCode(code)
	if !ok {
		h.sendError(w, ErrorInvalidGrant, "Invalid or expired authorization code", http.StatusBadRequest)
		return
	}

	if rec.ClientCodeChallenge != "" {
		codeVerifier := r.FormValue("code_verifier")
		if !VerifyPKCE(codeVerifier, rec.ClientCodeChallenge, rec.ClientCodeMethod) {
			h.logger.Warn("PKCE verification failed at token endpoint")
			h.sendError(w, ErrorInvalidGrant, "PKCE verification failed", http.StatusBadRequest)
			return
		}
	}

	h.writeTokenResponse(w, &TokenResponse{
		AccessToken:  rec.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    rec.ExpiresIn,
		RefreshToken: rec.RefreshToken,
		Scope:        rec.Scope,
	})
}

// handleRefreshToken forwards the refresh grant to the IdP with the
// gateway's own credentials and mirrors the response verbatim. The client's
// possession of the opaque refresh token is the proof here; no PKCE
// re-verification happens on this path.
func (h *TokenEndpointHandler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.FormValue("refresh_token")
	if refreshToken == "" {
		h.sendError(w, ErrorInvalidRequest, "refresh_token is required", http.StatusBadRequest)
		return
	}

	data := url.Values{}
	data.Set("client_id", h.config.ClientID)
	data.Set("client_secret", h.config.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("scope", h.config.CompositeScope())

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.config.GetTokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		h.sendError(w, ErrorServerError, "Failed to create refresh request", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Error("IdP refresh request failed", zap.Error(err))
		h.sendError(w, ErrorServerError, "Failed to refresh token", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			h.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		h.sendError(w, ErrorServerError, "Failed to read refresh response", http.StatusInternalServerError)
		return
	}

	// Mirror the IdP's success or error payload as-is
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("failed to write refresh response", zap.Error(err))
	}
}

// writeTokenResponse writes a successful token response
func (h *TokenEndpointHandler) writeTokenResponse(w http.ResponseWriter, resp *TokenResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode token response", zap.Error(err))
	}
}

// sendError sends an OAuth error response
func (h *TokenEndpointHandler) sendError(w http.ResponseWriter, errorCode, errorDescription string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := OAuthError{
		Error:            errorCode,
		ErrorDescription: errorDescription,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// RevocationHandler implements RFC 7009 for the gateway. Proxy codes are
// consumed on use and refresh handling is delegated to the IdP, so there is
// no local state to clear; revocation always succeeds.
type RevocationHandler struct{}

// NewRevocationHandler creates a new revocation handler
func NewRevocationHandler() *RevocationHandler {
	return &RevocationHandler{}
}

// ServeHTTP implements http.Handler
func (h *RevocationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}
