package oidc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrClientNotConfigured is returned when no token URL or client ID is set
var ErrClientNotConfigured = errors.New("oauth2 client credentials not configured")

// ClientConfig holds machine-to-machine credentials for calling the API
type ClientConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Client wraps OAuth2 client-credentials functionality
type Client struct {
	config *clientcredentials.Config
}

// NewClient creates a new OAuth2 client from credentials
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.TokenURL == "" || cfg.ClientID == "" {
		return nil, ErrClientNotConfigured
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}

	return &Client{config: &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleAutoDetect,
	}}, nil
}

// ParseScopes splits a comma or space separated scope list
func ParseScopes(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
}

// Token fetches an access token
func (c *Client) Token(ctx context.Context) (*oauth2.Token, error) {
	return c.config.Token(ctx)
}

// HTTPClient returns a client that attaches a refreshed bearer token to every request
func (c *Client) HTTPClient(ctx context.Context) *http.Client {
	return c.config.Client(ctx)
}
