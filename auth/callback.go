// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// idpTokenResponse is the IdP's token endpoint response for both the
// authorization-code and refresh-token grants.
type idpTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// idpError carries an IdP-reported OAuth error so handlers can pass the
// payload through verbatim.
type idpError struct {
	Code        string
	Description string
}

func (e *idpError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// CallbackHandler receives the IdP redirect, exchanges the IdP code for
// tokens, and hands the client a one-shot proxy code.
type CallbackHandler struct {
	config     *Config
	flows      *FlowStore
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(config *Config, flows *FlowStore, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		config: config,
		flows:  flows,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ServeHTTP implements http.Handler
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	idpCode := query.Get("code")
	state := query.Get("state")
	errorParam := query.Get("error")
	errorDescription := query.Get("error_description")

	// IdP-reported errors pass through verbatim
	if errorParam != "" {
		h.sendError(w, errorParam, errorDescription, http.StatusBadRequest)
		return
	}

	if idpCode == "" {
		h.sendError(w, ErrorInvalidRequest, "No authorization code received", http.StatusBadRequest)
		return
	}

	// Single-use: the transaction is gone after this regardless of outcome,
	// so the IdP code can never be replayed through the gateway.
	txn, ok := h.flows.ConsumeTransaction(state)
	if !ok {
		h.sendError(w, ErrorInvalidState, "Invalid or expired state parameter", http.StatusBadRequest)
		return
	}

	tokens, err := h.exchangeIdPCode(r.Context(), idpCode, txn.ProxyCodeVerifier)
	if err != nil {
		var idpErr *idpError
		if errors.As(err, &idpErr) {
			h.sendError(w, idpErr.Code, idpErr.Description, http.StatusBadRequest)
			return
		}
		h.logger.Error("IdP code exchange failed",
			zap.String("client_id", txn.ClientID),
			zap.Error(err))
		h.sendError(w, ErrorServerError, "Failed to obtain access token", http.StatusInternalServerError)
		return
	}

	proxyCode := uuid.NewString()

	h.flows.StoreCode(&AuthorizationCodeRecord{
		ProxyCode:           proxyCode,
		AccessToken:         tokens.AccessToken,
		RefreshToken:        tokens.RefreshToken,
		ExpiresIn:           tokens.ExpiresIn,
		Scope:               tokens.Scope,
		ClientCodeChallenge: txn.ClientCodeChallenge,
		ClientCodeMethod:    txn.ClientCodeMethod,
		CreatedAt:           time.Now(),
	})

	// Redirect to the registered URI verbatim with only code and state added
	redirectURL, err := url.Parse(txn.ClientRedirectURI)
	if err != nil {
		h.sendError(w, ErrorInvalidRequest, "Invalid redirect URI", http.StatusBadRequest)
		return
	}

	params := url.Values{}
	params.Set("code", proxyCode)
	if txn.ClientState != "" {
		params.Set("state", txn.ClientState)
	}
	if redirectURL.RawQuery != "" {
		redirectURL.RawQuery += "&" + params.Encode()
	} else {
		redirectURL.RawQuery = params.Encode()
	}

	http.Redirect(w, r, redirectURL.String(), http.StatusFound)
}

// exchangeIdPCode exchanges the IdP authorization code for tokens using the
// gateway's confidential credentials and its own PKCE verifier.
func (h *CallbackHandler) exchangeIdPCode(ctx context.Context, code, codeVerifier string) (*idpTokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", h.config.ClientID)
	data.Set("client_secret", h.config.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", h.config.CallbackURL())
	data.Set("grant_type", "authorization_code")
	data.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.GetTokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			h.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	var tokens idpTokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokens.Error != "" {
		return nil, &idpError{Code: tokens.Error, Description: tokens.ErrorDesc}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("IdP token exchange failed with status %d", resp.StatusCode)
	}

	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("no access token in response")
	}

	return &tokens, nil
}

// sendError sends an OAuth error response
func (h *CallbackHandler) sendError(w http.ResponseWriter, errorCode, errorDescription string, statusCode int) {
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
