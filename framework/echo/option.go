package jwtecho

import (
	"github.com/labstack/echo/v4"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
)

// Option is a function that configures the middleware
type Option func(*echoMiddlewareConfig)

// WithErrorHandler sets a custom error handler. Its return value is returned
// from the middleware, so returning an *echo.HTTPError hands the response to
// echo's HTTPErrorHandler.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(config *echoMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets a custom context key to store claims
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor jwtmiddleware.TokenExtractor) Option {
	return func(config *echoMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}

// WithValidateOnOptions controls whether OPTIONS requests are authenticated.
func WithValidateOnOptions(value bool) Option {
	return func(config *echoMiddlewareConfig) {
		config.validateOnOptions = value
	}
}
