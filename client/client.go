// Package client calls an API protected by the authentication gate, using
// the OAuth 2.0 client-credentials flow against the same Entra ID tenant.
//
//	cfg, _ := entraid.LoadConfig()
//	c, err := client.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	body, err := c.Call(ctx, http.MethodGet, "/api/hello", nil)
//
// Tokens are cached by the underlying oauth2.TokenSource and renewed shortly
// before they expire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/vmdemo/entra-jwt-middleware/core"
	"github.com/vmdemo/entra-jwt-middleware/entraid"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 64 << 10

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	logger     core.Logger
}

// StatusError is returned by Call for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unauthorized reports whether the gate rejected the token.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// New builds a client for cfg. The tenant, client id, secret and API base URL
// are all required.
func New(cfg entraid.Config, opts ...Option) (*Client, error) {
	o := &options{tokenURL: cfg.TokenURL()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	var missing []string
	for name, v := range map[string]string{
		entraid.EnvTenantID:     cfg.TenantID,
		entraid.EnvClientID:     cfg.ClientID,
		entraid.EnvClientSecret: cfg.ClientSecret,
		entraid.EnvAPIBaseURL:   cfg.APIBaseURL,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("client configuration incomplete, set %s", strings.Join(missing, ", "))
	}

	ccfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     o.tokenURL,
		Scopes:       []string{cfg.DefaultScope()},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx := context.Background()
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	tokens := ccfg.TokenSource(ctx)

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		tokens:     tokens,
		httpClient: oauth2.NewClient(ctx, tokens),
		logger:     o.logger,
	}, nil
}

// Token returns the current access token, acquiring one if needed.
func (c *Client) Token() (*oauth2.Token, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}
	return tok, nil
}

// Call sends method to baseURL+endpoint with a bearer token and decodes the
// JSON response. A non-nil body is sent as JSON.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.Info("calling API", "method", method, "url", url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("failed to acquire token: %w", retrieveErr)
		}
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Info("API responded", "status", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: b}
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return out, nil
}
