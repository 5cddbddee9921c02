// Package jwtgin adapts the authentication gate to gin.
package jwtgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
	"github.com/vmdemo/entra-jwt-middleware/core"
	"github.com/vmdemo/entra-jwt-middleware/validator"
)

// DefaultClaimsKey is the gin context key claims are stored under.
const DefaultClaimsKey = "jwt"

var (
	ErrMissingClaims = errors.New("no JWT claims found in context")
	ErrInvalidClaims = errors.New("invalid JWT claims type")
)

type GinMiddlewareConfig struct {
	errorHandler      func(*gin.Context, error)
	contextKey        string
	tokenExtractor    jwtmiddleware.TokenExtractor
	validateOnOptions bool
}

// NewGinMiddleware creates a gin middleware that runs every request through
// c. Rejected requests are aborted; allowed ones carry the claims both in the
// gin context (under the configured key) and in the request context, so
// jwtmiddleware.GetClaims works from gin handlers too.
func NewGinMiddleware(c *core.Core, opts ...Option) gin.HandlerFunc {
	config := &GinMiddlewareConfig{
		errorHandler:      defaultGinErrorHandler,
		contextKey:        DefaultClaimsKey,
		tokenExtractor:    jwtmiddleware.AuthHeaderTokenExtractor,
		validateOnOptions: true,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(ctx *gin.Context) {
		if !config.validateOnOptions && ctx.Request.Method == http.MethodOptions {
			ctx.Next()
			return
		}

		outcome := c.Authenticate(ctx.Request.Context(), config.tokenExtractor(ctx.Request))
		if !outcome.Allowed() {
			config.errorHandler(ctx, outcome.Err)
			ctx.Abort()
			return
		}

		ctx.Request = ctx.Request.WithContext(core.WithOutcome(ctx.Request.Context(), outcome))
		if outcome.Status == core.StatusAuthenticated {
			ctx.Set(config.contextKey, outcome.Claims)
		}

		ctx.Next()
	}
}

func defaultGinErrorHandler(c *gin.Context, err error) {
	jwtmiddleware.DefaultErrorHandler(c.Writer, c.Request, err)
}

// GetClaims returns the validated claims stored by NewGinMiddleware. An empty
// contextKey means DefaultClaimsKey.
func GetClaims(c *gin.Context, contextKey string) (*validator.ValidatedClaims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return validatedClaims, nil
}
