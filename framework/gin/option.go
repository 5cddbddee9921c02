package jwtgin

import (
	"github.com/gin-gonic/gin"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
)

// Option defines a functional option for configuring the middleware
type Option func(*GinMiddlewareConfig)

// WithErrorHandler sets a custom error handler for the middleware. The
// handler must write the response; the middleware aborts the chain after it
// returns.
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *GinMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets the gin context key claims are stored under.
func WithContextKey(key string) Option {
	return func(config *GinMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor jwtmiddleware.TokenExtractor) Option {
	return func(config *GinMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}

// WithValidateOnOptions controls whether OPTIONS requests are authenticated.
func WithValidateOnOptions(value bool) Option {
	return func(config *GinMiddlewareConfig) {
		config.validateOnOptions = value
	}
}
