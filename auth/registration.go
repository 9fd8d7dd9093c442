// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RegistrationHandler handles Dynamic Client Registration requests per RFC 7591
type RegistrationHandler struct {
	config  *Config
	storage ClientStorage
	logger  *zap.Logger
}

// NewRegistrationHandler creates a new DCR handler
func NewRegistrationHandler(config *Config, storage ClientStorage, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		config:  config,
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP implements http.Handler for the /register endpoint
func (h *RegistrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, ErrorInvalidRequest, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ClientRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, ErrorInvalidRequest, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	if err := h.validateRequest(&req); err != nil {
		h.sendError(w, ErrorInvalidClientMetadata, err.Error(), http.StatusBadRequest)
		return
	}

	h.applyDefaults(&req)

	clientID := GenerateClientID()
	now := time.Now()

	// Redirect URIs are stored verbatim; authorization requests must match
	// one of them exactly.
	client := &ClientRegistration{
		ClientID:                clientID,
		ClientName:              req.ClientName,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              req.GrantTypes,
		ResponseTypes:           req.ResponseTypes,
		TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
		Scope:                   req.Scope,
		CreatedAt:               now,
	}

	if err := h.storage.StoreClient(client); err != nil {
		h.sendError(w, ErrorServerError, "Failed to store client registration", http.StatusInternalServerError)
		return
	}

	h.logger.Info("registered client",
		zap.String("client_id", clientID),
		zap.String("client_name", req.ClientName),
		zap.Int("redirect_uris", len(req.RedirectURIs)))

	response := ClientRegistrationResponse{
		ClientID:                clientID,
		ClientIDIssuedAt:        now.Unix(),
		RedirectURIs:            req.RedirectURIs,
		TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
		GrantTypes:              req.GrantTypes,
		ResponseTypes:           req.ResponseTypes,
		ClientName:              req.ClientName,
		ClientURI:               req.ClientURI,
		Scope:                   req.Scope,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode registration response", zap.Error(err))
	}
}

// validateRequest validates the client registration request
func (h *RegistrationHandler) validateRequest(req *ClientRegistrationRequest) error {
	if len(req.RedirectURIs) == 0 {
		return fmt.Errorf("at least one redirect_uri is required")
	}

	for _, uri := range req.RedirectURIs {
		if uri == "" {
			return fmt.Errorf("redirect_uri cannot be empty")
		}
		if len(uri) > 2048 {
			return fmt.Errorf("redirect_uri too long: %s", uri)
		}
	}

	if len(req.GrantTypes) > 0 {
		validGrantTypes := map[string]bool{
			"authorization_code": true,
			"refresh_token":      true,
		}
		for _, gt := range req.GrantTypes {
			if !validGrantTypes[gt] {
				return fmt.Errorf("invalid grant_type: %s", gt)
			}
		}
	}

	if len(req.ResponseTypes) > 0 {
		for _, rt := range req.ResponseTypes {
			if rt != "code" {
				return fmt.Errorf("invalid response_type: %s", rt)
			}
		}
	}

	if req.TokenEndpointAuthMethod != "" {
		validMethods := map[string]bool{
			"none":               true,
			"client_secret_post": true,
		}
		if !validMethods[req.TokenEndpointAuthMethod] {
			return fmt.Errorf("invalid token_endpoint_auth_method: %s", req.TokenEndpointAuthMethod)
		}
	}

	if len(req.ClientName) > 256 {
		return fmt.Errorf("client_name too long (max 256 characters)")
	}

	return nil
}

// applyDefaults applies default values to the registration request
func (h *RegistrationHandler) applyDefaults(req *ClientRegistrationRequest) {
	if req.TokenEndpointAuthMethod == "" {
		req.TokenEndpointAuthMethod = "none"
	}

	if len(req.GrantTypes) == 0 {
		req.GrantTypes = []string{"authorization_code"}
	}

	if len(req.ResponseTypes) == 0 {
		req.ResponseTypes = []string{"code"}
	}

	if req.Scope == "" {
		req.Scope = h.config.APIScope
	}
}

// sendError sends an error response
func (h *RegistrationHandler) sendError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	errorResp := OAuthError{
		Error:            errorCode,
		ErrorDescription: description,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}
