// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Validation errors. Handlers log the specific cause but clients only ever
// see a generic 401 body.
var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingOID   = errors.New("token missing oid claim")
)

// claimSkew is the clock skew tolerated on exp and nbf.
const claimSkew = 60 * time.Second

// TokenValidator verifies inbound bearer tokens against the IdP's signing
// keys and attaches the resulting UserIdentity to the request context.
type TokenValidator struct {
	config *Config
	jwks   *JWKSCache
	logger *zap.Logger
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(config *Config, jwks *JWKSCache, logger *zap.Logger) *TokenValidator {
	return &TokenValidator{
		config: config,
		jwks:   jwks,
		logger: logger,
	}
}

// Verify validates a bearer token and extracts the user identity.
func (v *TokenValidator) Verify(ctx context.Context, tokenString string) (*UserIdentity, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.config.GetIssuer()),
		jwt.WithAudience(v.config.APIScope),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(claimSkew),
	)

	token, err := parser.Parse(tokenString, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return v.jwks.Key(ctx, v.config.GetJWKSURL(), kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	oid, ok := claims["oid"].(string)
	if !ok || oid == "" {
		return nil, ErrMissingOID
	}

	identity := &UserIdentity{
		Token:    tokenString,
		ObjectID: oid,
		Claims:   claims,
	}

	if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 {
		identity.ClientID = aud[0]
	}
	if scp, ok := claims["scp"].(string); ok {
		identity.Scopes = strings.Fields(scp)
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if username, ok := claims["preferred_username"].(string); ok {
		identity.PreferredUsername = username
	}
	if sub, ok := claims["sub"].(string); ok {
		identity.Subject = sub
	}
	if tid, ok := claims["tid"].(string); ok {
		identity.TenantID = tid
	}

	return identity, nil
}

// RequireAuth returns HTTP middleware that rejects requests without a valid
// bearer token. The 401 challenge carries the resource metadata URL that
// triggers the client's discovery cycle.
func (v *TokenValidator) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				v.unauthorized(w, "Authentication required")
				return
			}

			identity, err := v.Verify(r.Context(), tokenString)
			if err != nil {
				// Log the cause, never disclose it to the client
				v.logger.Warn("token validation failed",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				v.unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth returns HTTP middleware that validates a bearer token when
// one is present but lets unauthenticated requests through. Used for
// endpoints that serve both authenticated and unauthenticated traffic,
// such as streaming channels.
func (v *TokenValidator) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := v.Verify(r.Context(), tokenString)
			if err != nil {
				v.logger.Debug("optional auth token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// unauthorized emits the RFC 6750 challenge with a minimal JSON body.
func (v *TokenValidator) unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf("Bearer resource_metadata=%q", v.config.GetResourceMetadataURL()))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	resp := OAuthError{
		Error:            ErrorUnauthorized,
		ErrorDescription: description,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		v.logger.Error("failed to encode 401 response", zap.Error(err))
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
