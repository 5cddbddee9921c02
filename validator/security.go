package validator

import (
	"errors"
	"strings"
)

// ErrTokenSegments is returned when a token is not three dot-separated segments.
var ErrTokenSegments = errors.New("token must have exactly three segments")

// maxTokenSize rejects inputs no real bearer token comes near before any
// decoding is attempted.
const maxTokenSize = 1024 * 1024

// validateTokenFormat rejects strings that cannot be a compact JWS before
// they reach the parser.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token is empty")
	}

	if len(tokenString) > maxTokenSize {
		return errors.New("token exceeds maximum size (1MB)")
	}

	if strings.Count(tokenString, ".") != 2 {
		return ErrTokenSegments
	}

	return nil
}
