// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// UserIdentity is the result of validating an inbound bearer token. It is
// constructed per request, attached to the request context, and dropped at
// response end.
type UserIdentity struct {
	// Token is the raw bearer token, retained for on-behalf-of exchange
	Token string

	// ClientID is the aud claim: the IdP application the token was issued for
	ClientID string

	// Scopes is the scp claim split on whitespace
	Scopes []string

	// ObjectID is the oid claim, the stable per-tenant user identifier.
	// This is the partition key for user data.
	ObjectID string

	// Optional display claims
	Name              string
	PreferredUsername string
	Subject           string
	TenantID          string

	// Claims holds the full verified claim set
	Claims jwt.MapClaims
}

// identityContextKey is the context key for UserIdentity.
// An empty struct type cannot collide with keys from other packages.
type identityContextKey struct{}

// WithIdentity stores a UserIdentity in the context.
func WithIdentity(ctx context.Context, identity *UserIdentity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the UserIdentity from the context.
// Returns the identity and true if present, nil and false otherwise.
func IdentityFromContext(ctx context.Context) (*UserIdentity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*UserIdentity)
	return identity, ok
}
