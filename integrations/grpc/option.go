package grpc

import (
	"errors"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// Option configures the JWT interceptor.
type Option func(*JWTInterceptor) error

// Logger defines an optional logging interface compatible with log/slog.
type Logger = core.Logger

// WithCore sets the authentication engine (REQUIRED). The same core can back
// the HTTP gate and the interceptors of one process.
//
//	interceptor, _ := grpc.New(
//	    grpc.WithCore(c),
//	    grpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
func WithCore(c *core.Core) Option {
	return func(i *JWTInterceptor) error {
		if c == nil {
			return errors.New("core cannot be nil")
		}
		i.core = c
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor.
func WithLogger(logger Logger) Option {
	return func(i *JWTInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor which extracts from "authorization" metadata.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *JWTInterceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *JWTInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes specific gRPC methods from JWT validation.
// Methods should be provided in the format: "/package.Service/Method"
// Example: "/myapp.MyService/PublicMethod", "/grpc.health.v1.Health/Check"
func WithExcludedMethods(methods ...string) Option {
	return func(i *JWTInterceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
