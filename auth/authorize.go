package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AuthorizationHandler handles OAuth 2.1 authorization requests from DCR
// clients and forwards the user to the IdP with the gateway's own PKCE.
type AuthorizationHandler struct {
	config  *Config
	storage ClientStorage
	flows   *FlowStore
	logger  *zap.Logger
}

// NewAuthorizationHandler creates a new authorization handler
func NewAuthorizationHandler(config *Config, storage ClientStorage, flows *FlowStore, logger *zap.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{
		config:  config,
		storage: storage,
		flows:   flows,
		logger:  logger,
	}
}

// ServeHTTP implements http.Handler
func (h *AuthorizationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	responseType := query.Get("response_type")
	clientID := query.Get("client_id")
	redirectURI := query.Get("redirect_uri")
	scope := query.Get("scope")
	clientState := query.Get("state")
	codeChallenge := query.Get("code_challenge")
	codeChallengeMethod := query.Get("code_challenge_method")

	if responseType != "code" {
		h.sendError(w, ErrorUnsupportedResponseType, "Only 'code' response type is supported")
		return
	}

	if clientID == "" {
		h.sendError(w, ErrorInvalidRequest, "client_id is required")
		return
	}

	client, err := h.storage.GetClient(clientID)
	if err != nil || client == nil {
		h.logger.Warn("authorize request from unknown client", zap.String("client_id", clientID))
		h.sendError(w, ErrorInvalidRequest, "Unknown client_id")
		return
	}

	if redirectURI == "" {
		h.sendError(w, ErrorInvalidRequest, "redirect_uri is required")
		return
	}

	// Must match a registered URI verbatim
	validRedirect := false
	for _, uri := range client.RedirectURIs {
		if uri == redirectURI {
			validRedirect = true
			break
		}
	}
	if !validRedirect {
		h.logger.Warn("redirect_uri not registered",
			zap.String("client_id", clientID),
			zap.String("redirect_uri", redirectURI))
		h.sendError(w, ErrorInvalidRequest, "redirect_uri not registered for this client")
		return
	}

	if codeChallenge == "" {
		h.sendError(w, ErrorInvalidRequest, "code_challenge is required (PKCE)")
		return
	}
	if codeChallengeMethod != PKCEMethodS256 && codeChallengeMethod != PKCEMethodPlain {
		h.sendError(w, ErrorInvalidRequest, "code_challenge_method must be S256 or plain")
		return
	}

	// Correlation key for the IdP round trip. A UUID carries 122 bits of
	// entropy.
	proxyState := uuid.NewString()

	// The gateway's own PKCE with the IdP, always S256. The client's
	// commitment stays in the transaction and is never forwarded.
	proxyVerifier := oauth2.GenerateVerifier()
	proxyChallenge := S256Challenge(proxyVerifier)

	h.flows.StoreTransaction(&AuthTransaction{
		ProxyState:          proxyState,
		ClientID:            clientID,
		ClientRedirectURI:   redirectURI,
		ClientState:         clientState,
		ClientCodeChallenge: codeChallenge,
		ClientCodeMethod:    codeChallengeMethod,
		ProxyCodeVerifier:   proxyVerifier,
		RequestedScope:      scope,
		CreatedAt:           time.Now(),
	})

	idpAuthURL, err := url.Parse(h.config.GetAuthorizeURL())
	if err != nil {
		h.logger.Error("invalid IdP authorize URL", zap.Error(err))
		h.sendError(w, ErrorServerError, "Invalid authorization server configuration")
		return
	}

	idpQuery := idpAuthURL.Query()
	idpQuery.Set("client_id", h.config.ClientID)
	idpQuery.Set("response_type", "code")
	idpQuery.Set("redirect_uri", h.config.CallbackURL())
	idpQuery.Set("scope", h.config.CompositeScope())
	idpQuery.Set("state", proxyState)
	idpQuery.Set("code_challenge", proxyChallenge)
	idpQuery.Set("code_challenge_method", PKCEMethodS256)
	idpAuthURL.RawQuery = idpQuery.Encode()

	http.Redirect(w, r, idpAuthURL.String(), http.StatusFound)
}

// sendError sends an OAuth error response
func (h *AuthorizationHandler) sendError(w http.ResponseWriter, errorCode, errorDescription string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := OAuthError{
		Error:            errorCode,
		ErrorDescription: errorDescription,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}
