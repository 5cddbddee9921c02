package core

import (
	"context"
	"fmt"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	claimsKey contextKey = iota
	authDisabledKey
)

// GetClaims retrieves claims from the context with type safety using generics.
//
//	claims, err := core.GetClaims[*validator.ValidatedClaims](ctx)
//	if err != nil {
//	    return err
//	}
func GetClaims[T any](ctx context.Context) (T, error) {
	var zero T

	val := ctx.Value(claimsKey)
	if val == nil {
		return zero, ErrClaimsNotFound
	}

	claims, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("claims type assertion failed: got %T", val)
	}

	return claims, nil
}

// SetClaims stores claims in the context.
// This is a helper function for adapters to set claims after validation.
func SetClaims(ctx context.Context, claims any) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// HasClaims checks if claims exist in the context without retrieving them.
func HasClaims(ctx context.Context) bool {
	return ctx.Value(claimsKey) != nil
}

// SetAuthDisabled marks the context as having passed through a gate whose
// authentication is disabled.
func SetAuthDisabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, authDisabledKey, true)
}

// AuthDisabled reports whether the request was let through because
// authentication is disabled.
func AuthDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(authDisabledKey).(bool)
	return v
}

// WithOutcome applies an allowed outcome to ctx: claims are stored for an
// authenticated request and the bypass marker for a bypassed one.
func WithOutcome(ctx context.Context, o Outcome) context.Context {
	switch o.Status {
	case StatusAuthenticated:
		return SetClaims(ctx, o.Claims)
	case StatusBypassed:
		return SetAuthDisabled(ctx)
	}
	return ctx
}
