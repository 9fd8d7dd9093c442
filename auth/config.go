package auth

// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultAuthorityHost is the identity provider host used to derive
// endpoints when no explicit overrides are configured.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

// Config holds the gateway's OAuth configuration.
type Config struct {
	// BaseURL is the canonical URL of the gateway (e.g., https://gateway.example.com)
	BaseURL string

	// Identity provider credentials (the gateway's pre-registered app)
	TenantID     string
	ClientID     string
	ClientSecret string

	// APIScope is the single API scope the gateway enforces as the token
	// audience (e.g., api://mcp-todo-gateway/access)
	APIScope string

	// AuthorityHost is the IdP host; overridable for sovereign clouds
	AuthorityHost string

	// Endpoint overrides, used by tests and non-standard tenants.
	// When empty they are derived from AuthorityHost and TenantID.
	AuthorizeURL string
	TokenURL     string
	JWKSURL      string
	Issuer       string
}

// LoadConfigFromEnv loads configuration from environment variables.
// The client secret may alternatively come from AWS Secrets Manager when
// IDP_OAUTH_SECRET_NAME is set.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		TenantID:      os.Getenv("IDP_TENANT_ID"),
		ClientID:      os.Getenv("IDP_CLIENT_ID"),
		ClientSecret:  os.Getenv("IDP_CLIENT_SECRET"),
		APIScope:      os.Getenv("GATEWAY_API_SCOPE"),
		AuthorityHost: DefaultAuthorityHost,
	}

	if baseURL := os.Getenv("GATEWAY_BASE_URL"); baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GATEWAY_BASE_URL: %w", err)
		}
		cfg.BaseURL = strings.TrimSuffix(parsed.String(), "/")
	}

	if host := os.Getenv("IDP_AUTHORITY_HOST"); host != "" {
		cfg.AuthorityHost = strings.TrimSuffix(host, "/")
	}

	// Secret via AWS Secrets Manager (production)
	if cfg.ClientSecret == "" {
		if secretName := os.Getenv("IDP_OAUTH_SECRET_NAME"); secretName != "" {
			if err := loadIdPCredsFromSecretsManager(cfg, secretName); err != nil {
				return nil, fmt.Errorf("failed to load IdP credentials from Secrets Manager: %w", err)
			}
		}
	}

	// Endpoint overrides (testing or non-standard tenants)
	if v := os.Getenv("IDP_AUTHORIZE_URL"); v != "" {
		cfg.AuthorizeURL = v
	}
	if v := os.Getenv("IDP_TOKEN_URL"); v != "" {
		cfg.TokenURL = v
	}
	if v := os.Getenv("IDP_JWKS_URL"); v != "" {
		cfg.JWKSURL = v
	}
	if v := os.Getenv("IDP_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	return cfg, nil
}

// Validate checks if the configuration is complete enough to run the gateway.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid gateway base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("gateway base URL must use http or https scheme")
	}
	if c.TenantID == "" {
		return fmt.Errorf("IdP tenant ID is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("IdP client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("IdP client secret is required")
	}
	if c.APIScope == "" {
		return fmt.Errorf("gateway API scope is required")
	}
	return nil
}

// Authority returns the tenant-scoped authority URL.
func (c *Config) Authority() string {
	return c.AuthorityHost + "/" + c.TenantID
}

// GetAuthorizeURL returns the IdP authorization endpoint.
func (c *Config) GetAuthorizeURL() string {
	if c.AuthorizeURL != "" {
		return c.AuthorizeURL
	}
	return c.Authority() + "/oauth2/v2.0/authorize"
}

// GetTokenURL returns the IdP token endpoint.
func (c *Config) GetTokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return c.Authority() + "/oauth2/v2.0/token"
}

// GetJWKSURL returns the IdP signing key endpoint.
func (c *Config) GetJWKSURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return c.Authority() + "/discovery/v2.0/keys"
}

// GetIssuer returns the issuer expected in inbound tokens.
func (c *Config) GetIssuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return c.Authority() + "/v2.0"
}

// CompositeScope returns the scope string sent to the IdP: the gateway API
// scope plus the OIDC basics and offline access the IdP requires for
// refresh tokens.
func (c *Config) CompositeScope() string {
	return c.APIScope + " openid profile email offline_access"
}

// CallbackURL returns the gateway's fixed IdP callback URI.
func (c *Config) CallbackURL() string {
	return c.BaseURL + "/auth/callback"
}

// ResourceURL returns the canonical URL of the protected MCP endpoint.
func (c *Config) ResourceURL() string {
	return c.BaseURL + "/mcp"
}

// GetResourceMetadataURL returns the URL of the protected resource metadata
// endpoint, used in WWW-Authenticate challenges.
func (c *Config) GetResourceMetadataURL() string {
	return c.BaseURL + "/.well-known/oauth-protected-resource"
}

// loadIdPCredsFromSecretsManager loads the gateway's IdP credentials from
// AWS Secrets Manager.
func loadIdPCredsFromSecretsManager(cfg *Config, secretName string) error {
	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)

	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretName,
	})
	if err != nil {
		return fmt.Errorf("failed to retrieve secret: %w", err)
	}

	var secrets struct {
		ClientID     string `json:"IDP_CLIENT_ID"`
		ClientSecret string `json:"IDP_CLIENT_SECRET"`
	}

	if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
		return fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	if secrets.ClientID != "" {
		cfg.ClientID = secrets.ClientID
	}
	cfg.ClientSecret = secrets.ClientSecret

	return nil
}
