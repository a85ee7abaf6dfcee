package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/quicknode/internal/services/oidc"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 4 << 20

// apiClient calls the quicknode HTTP API and unwraps its response envelope
type apiClient struct {
	baseURL string
	http    *http.Client
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// apiClient builds a client for --server. With OAuth2 credentials configured every
// request carries a client-credentials bearer token; otherwise requests are anonymous,
// which works against a server running without JWKS_URL.
func (o *options) apiClient(ctx context.Context) (*apiClient, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	if o.tokenURL != "" || o.clientID != "" {
		client, err := oidc.NewClient(oidc.ClientConfig{
			TokenURL:     o.tokenURL,
			ClientID:     o.clientID,
			ClientSecret: o.clientSecret,
			Scopes:       oidc.ParseScopes(o.scopes),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure OAuth2 client: %w", err)
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		httpClient = client.HTTPClient(ctx)
		httpClient.Timeout = 30 * time.Second
	}

	return &apiClient{
		baseURL: strings.TrimRight(o.server, "/") + "/api/v1",
		http:    httpClient,
	}, nil
}

// do sends body as JSON and decodes the envelope's data into out
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var env apiEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return fmt.Errorf("server returned %d %s: %s", resp.StatusCode, env.Error, env.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
