// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

// PKCE (Proof Key for Code Exchange) helpers per RFC 7636.
//
// The gateway sits in two PKCE relationships at once: it verifies the MCP
// client's verifier against the challenge stored at /authorize, and it runs
// its own S256 exchange with the IdP using a verifier the client never sees.

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE challenge methods
const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// S256Challenge computes the S256 code challenge for a verifier:
// BASE64URL(SHA256(verifier)), unpadded.
func S256Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// VerifyPKCE checks a code_verifier against a stored challenge.
func VerifyPKCE(verifier, challenge, method string) bool {
	switch method {
	case PKCEMethodS256:
		computed := S256Challenge(verifier)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	case PKCEMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	default:
		return false
	}
}
