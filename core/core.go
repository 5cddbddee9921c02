package core

import (
	"context"
	"time"
)

// Validator verifies a raw token and returns its claims.
//
// Implementations should return a *ValidationError so the rejection can be
// classified; any other error is reported as an invalid signature.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// Logger defines an optional logging interface for the core middleware.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Core is the framework-agnostic authentication engine. It holds no mutable
// state and is safe for concurrent use.
type Core struct {
	validator Validator
	disabled  bool
	logger    Logger
}

// Disabled reports whether every request is bypassed.
func (c *Core) Disabled() bool {
	return c.disabled
}

// Authenticate turns the raw Authorization header value into an Outcome.
//
// When authentication is disabled the header is not inspected at all.
// Otherwise the bearer token is extracted and handed to the validator; a
// header that does not carry a bearer token is rejected without calling the
// validator.
func (c *Core) Authenticate(ctx context.Context, header string) Outcome {
	if c.disabled {
		if c.logger != nil {
			c.logger.Debug("Authentication disabled, bypassing")
		}
		return Bypassed()
	}

	token, err := ExtractBearerToken(header)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("No bearer token provided")
		}
		return Rejected(err)
	}

	start := time.Now()
	claims, err := c.validator.ValidateToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		outcome := Rejected(err)
		if c.logger != nil {
			c.logger.Warn("Token validation failed",
				"kind", outcome.Err.Kind,
				"error", outcome.Err,
				"duration", duration,
			)
		}
		return outcome
	}

	if c.logger != nil {
		c.logger.Debug("Token validated successfully", "duration", duration)
	}

	return Authenticated(claims)
}
