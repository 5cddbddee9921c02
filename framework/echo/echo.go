// Package jwtecho adapts the authentication gate to echo.
package jwtecho

import (
	"net/http"

	"github.com/labstack/echo/v4"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
	"github.com/vmdemo/entra-jwt-middleware/core"
	"github.com/vmdemo/entra-jwt-middleware/validator"
)

// DefaultClaimsKey is the echo context key claims are stored under.
const DefaultClaimsKey = "jwt"

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler      func(echo.Context, error) error
	contextKey        string
	tokenExtractor    jwtmiddleware.TokenExtractor
	validateOnOptions bool
}

// NewEchoMiddleware returns an echo middleware that runs every request
// through c.
func NewEchoMiddleware(c *core.Core, opts ...Option) echo.MiddlewareFunc {
	config := &echoMiddlewareConfig{
		errorHandler:      defaultEchoErrorHandler,
		contextKey:        DefaultClaimsKey,
		tokenExtractor:    jwtmiddleware.AuthHeaderTokenExtractor,
		validateOnOptions: true,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			r := ec.Request()
			if !config.validateOnOptions && r.Method == http.MethodOptions {
				return next(ec)
			}

			outcome := c.Authenticate(r.Context(), config.tokenExtractor(r))
			if !outcome.Allowed() {
				return config.errorHandler(ec, outcome.Err)
			}

			ec.SetRequest(r.WithContext(core.WithOutcome(r.Context(), outcome)))
			if outcome.Status == core.StatusAuthenticated {
				ec.Set(config.contextKey, outcome.Claims)
			}

			return next(ec)
		}
	}
}

func defaultEchoErrorHandler(c echo.Context, err error) error {
	jwtmiddleware.DefaultErrorHandler(c.Response(), c.Request(), err)
	return nil
}

// GetClaims extracts the JWT claims from the Echo context
func GetClaims(c echo.Context, contextKey string) (*validator.ValidatedClaims, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims := c.Get(contextKey)
	if claims == nil {
		return nil, false
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	return validatedClaims, ok
}
