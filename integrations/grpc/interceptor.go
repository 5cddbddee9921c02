package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// JWTInterceptor provides JWT validation for gRPC servers.
type JWTInterceptor struct {
	core            *core.Core
	tokenExtractor  TokenExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          Logger
}

// New creates a new gRPC JWT interceptor with the provided options.
// WithCore is required.
func New(opts ...Option) (*JWTInterceptor, error) {
	interceptor := &JWTInterceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.core == nil {
		return nil, errors.New("core is required, use WithCore option")
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authenticates every call and makes the claims available in its context.
func (i *JWTInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping JWT validation for excluded method",
					"method", info.FullMethod)
			}
			return handler(ctx, req)
		}

		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authenticates the stream once, when it is opened.
func (i *JWTInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping JWT validation for excluded method",
					"method", info.FullMethod)
			}
			return handler(srv, ss)
		}

		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          authCtx,
		})
	}
}

func (i *JWTInterceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	var outcome core.Outcome

	header, err := i.tokenExtractor(ctx)
	if err != nil {
		outcome = core.Rejected(core.NewValidationError(
			core.KindMissingOrMalformedHeader,
			"Authorization header missing or invalid",
			err,
		))
	} else {
		outcome = i.core.Authenticate(ctx, header)
	}

	if !outcome.Allowed() {
		if i.logger != nil {
			i.logger.Warn("call rejected",
				"kind", outcome.Err.Kind,
				"method", method)
		}
		return ctx, i.errorHandler(outcome.Err)
	}

	return core.WithOutcome(ctx, outcome), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with JWT claims.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
