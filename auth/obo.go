// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

// On-Behalf-Of token exchange per RFC 7523. Given a validated incoming
// token, the gateway obtains a downstream access token carrying the user's
// identity, using its own confidential credentials as the exchanging
// client.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// GrantTypeJWTBearer is the RFC 7523 JWT bearer grant type used for the
// on-behalf-of exchange.
const GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// ErrMissingCredentials indicates the gateway has no confidential
// credentials configured; delegation cannot work without them.
var ErrMissingCredentials = fmt.Errorf("gateway client credentials are not configured")

// OBOError is an IdP-reported failure during the on-behalf-of exchange.
// The user is authenticated to the gateway; they typically lack delegated
// consent for the requested scopes. Callers surface this as a tool-level
// failure rather than an authentication failure.
type OBOError struct {
	// Code is the OAuth error code from the IdP
	Code string `json:"error"`

	// Description is the IdP's human-readable description
	Description string `json:"error_description,omitempty"`
}

func (e *OBOError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("on-behalf-of exchange failed: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("on-behalf-of exchange failed: %s", e.Code)
}

// confidentialClient is the gateway's identity at the IdP token endpoint.
// One instance per process, initialized lazily and never torn down.
type confidentialClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
}

// OBOExchanger performs on-behalf-of token exchanges.
type OBOExchanger struct {
	config *Config
	logger *zap.Logger

	once      sync.Once
	client    *confidentialClient
	clientErr error
}

// NewOBOExchanger creates a new on-behalf-of exchanger
func NewOBOExchanger(config *Config, logger *zap.Logger) *OBOExchanger {
	return &OBOExchanger{
		config: config,
		logger: logger,
	}
}

// confidential returns the memoized confidential client, building it on
// first use.
func (e *OBOExchanger) confidential() (*confidentialClient, error) {
	e.once.Do(func() {
		if e.config.ClientID == "" || e.config.ClientSecret == "" {
			e.clientErr = ErrMissingCredentials
			return
		}
		e.client = &confidentialClient{
			clientID:     e.config.ClientID,
			clientSecret: e.config.ClientSecret,
			tokenURL:     e.config.GetTokenURL(),
			httpClient: &http.Client{
				Timeout: 10 * time.Second,
			},
		}
	})
	return e.client, e.clientErr
}

// Exchange trades a validated incoming token for a downstream access token
// with the requested scopes. Returns the downstream access token.
func (e *OBOExchanger) Exchange(ctx context.Context, userToken string, scopes []string) (string, error) {
	if userToken == "" {
		return "", fmt.Errorf("assertion token is required")
	}
	if len(scopes) == 0 {
		return "", fmt.Errorf("at least one scope is required")
	}

	client, err := e.confidential()
	if err != nil {
		return "", err
	}

	data := url.Values{}
	data.Set("grant_type", GrantTypeJWTBearer)
	data.Set("assertion", userToken)
	data.Set("requested_token_use", "on_behalf_of")
	data.Set("client_id", client.clientID)
	data.Set("client_secret", client.clientSecret)
	data.Set("scope", strings.Join(scopes, " "))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			e.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read exchange response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oboErr OBOError
		if err := json.Unmarshal(body, &oboErr); err == nil && oboErr.Code != "" {
			e.logger.Warn("on-behalf-of exchange rejected",
				zap.String("error", oboErr.Code),
				zap.Strings("scopes", scopes))
			return "", &oboErr
		}
		return "", fmt.Errorf("exchange returned status %d", resp.StatusCode)
	}

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return "", fmt.Errorf("failed to parse exchange response: %w", err)
	}
	if tokens.AccessToken == "" {
		return "", fmt.Errorf("no access token in exchange response")
	}

	return tokens.AccessToken, nil
}
