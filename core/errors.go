package core

import "errors"

// Sentinel errors for authentication.
var (
	// ErrJWTMissing is matched by rejections caused by an absent or
	// malformed Authorization header.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid is matched by every rejection.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)

// Kind is a machine-readable rejection reason.
type Kind string

// Rejection kinds, in the order a request can encounter them.
const (
	KindMissingOrMalformedHeader Kind = "missing_or_malformed_header"
	KindMalformedToken           Kind = "malformed_token"
	KindUnknownKey               Kind = "unknown_key"
	KindKeySetFetchFailed        Kind = "key_set_fetch_failed"
	KindInvalidSignature         Kind = "invalid_signature"
	KindInvalidIssuer            Kind = "invalid_issuer"
	KindInvalidAudience          Kind = "invalid_audience"
	KindExpired                  Kind = "expired"
)

// Kinds lists every rejection kind.
var Kinds = []Kind{
	KindMissingOrMalformedHeader,
	KindMalformedToken,
	KindUnknownKey,
	KindKeySetFetchFailed,
	KindInvalidSignature,
	KindInvalidIssuer,
	KindInvalidAudience,
	KindExpired,
}

// ValidationError describes why a request was rejected.
//
// Message is human readable and safe to return to the caller: it never
// contains the token or key material. Details carries the underlying cause
// for logging and may mention infrastructure (URLs, status codes).
type ValidationError struct {
	Kind    Kind
	Message string
	Details error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is allows the error to be compared with ErrJWTInvalid, and with ErrJWTMissing
// when the header itself was unusable.
func (e *ValidationError) Is(target error) bool {
	if target == ErrJWTInvalid {
		return true
	}
	return target == ErrJWTMissing && e.Kind == KindMissingOrMalformedHeader
}

// NewValidationError creates a new ValidationError with the given kind and message.
func NewValidationError(kind Kind, message string, details error) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// AsValidationError returns err as a *ValidationError. Errors that are not
// already classified are reported as an invalid signature: the token could
// not be trusted and nothing more specific is known.
func AsValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return NewValidationError(KindInvalidSignature, "token could not be verified", err)
}
