package client

import (
	"errors"
	"net/http"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

type options struct {
	httpClient *http.Client
	tokenURL   string
	logger     core.Logger
}

// Option configures a Client.
type Option func(*options) error

// WithHTTPClient sets the client used for both the token endpoint and the
// API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		o.httpClient = c
		return nil
	}
}

// WithTokenURL overrides the tenant token endpoint.
func WithTokenURL(u string) Option {
	return func(o *options) error {
		if u == "" {
			return errors.New("token URL cannot be empty")
		}
		o.tokenURL = u
		return nil
	}
}

// WithLogger logs each call. Tokens and secrets are never logged.
func WithLogger(logger core.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}
