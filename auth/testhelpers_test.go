package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKeyID = "test-key-1"

// testConfig returns a config pointing at the given mock IdP endpoints.
func testConfig(idpAuthorizeURL, idpTokenURL, jwksURL string) *Config {
	return &Config{
		BaseURL:      "http://gateway.test",
		TenantID:     "test-tenant",
		ClientID:     "gateway-client-id",
		ClientSecret: "gateway-client-secret",
		APIScope:     "api://mcp-access",
		AuthorizeURL: idpAuthorizeURL,
		TokenURL:     idpTokenURL,
		JWKSURL:      jwksURL,
		Issuer:       "https://login.microsoftonline.com/test-tenant/v2.0",
	}
}

// newTestKey generates an RSA signing key pair for token tests.
func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return privateKey
}

// newJWKSServer serves the public half of privateKey as a JWKS document.
func newJWKSServer(t *testing.T, privateKey *rsa.PrivateKey) *httptest.Server {
	t.Helper()

	key, err := jwk.Import(&privateKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, testKeyID))
	require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))
	require.NoError(t, key.Set(jwk.KeyUsageKey, "sig"))

	keySet := jwk.NewSet()
	require.NoError(t, keySet.AddKey(key))

	payload, err := json.Marshal(keySet)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	return server
}

// signToken signs claims with privateKey under the given kid.
func signToken(t *testing.T, privateKey *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)
	return signed
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
