package grpc

import (
	"context"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// GetClaims retrieves claims from the context with type safety using generics.
//
//	claims, err := jwtgrpc.GetClaims[*validator.ValidatedClaims](ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get claims")
//	}
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims from the context or panics.
func MustGetClaims[T any](ctx context.Context) T {
	claims, err := core.GetClaims[T](ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims checks if claims exist in the context.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}

// AuthDisabled reports whether the call was let through because
// authentication is disabled.
func AuthDisabled(ctx context.Context) bool {
	return core.AuthDisabled(ctx)
}
