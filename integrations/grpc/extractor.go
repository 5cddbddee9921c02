package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor returns the raw "authorization" metadata value, for example
// "Bearer eyJ...". An absent entry is the empty string with a nil error;
// scheme parsing is left to core.
type TokenExtractor func(ctx context.Context) (string, error)

// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
var ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

// MetadataTokenExtractor reads the "authorization" metadata key.
//
// gRPC normalizes incoming metadata keys to lowercase, so this extractor only
// checks the lowercase "authorization" key.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	authHeaders := md.Get("authorization")
	switch len(authHeaders) {
	case 0:
		return "", nil
	case 1:
		return authHeaders[0], nil
	default:
		return "", ErrMultipleAuthHeaders
	}
}
