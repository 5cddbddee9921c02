package jwtmiddleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// Realm is advertised in the WWW-Authenticate challenge.
const Realm = "Entra ID"

var (
	// ErrJWTMissing is matched by rejections caused by an absent or
	// malformed Authorization header.
	ErrJWTMissing = core.ErrJWTMissing

	// ErrJWTInvalid is matched by every rejection.
	ErrJWTInvalid = core.ErrJWTInvalid
)

// ErrorHandler writes the response for a rejected request. err is always a
// *core.ValidationError when called by CheckJWT; use core.AsValidationError
// to get at the kind.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// DefaultErrorHandler answers 401 with a Bearer challenge and an
// ErrorResponse body. The challenge carries error="invalid_token" only when a
// token was actually presented (RFC 6750 section 3.1).
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	ve := core.AsValidationError(err)

	w.Header().Set("WWW-Authenticate", challenge(ve))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   "Unauthorized",
		Message: responseMessage(ve),
		Kind:    string(ve.Kind),
	})
}

func responseMessage(ve *core.ValidationError) string {
	if ve.Kind == core.KindMissingOrMalformedHeader {
		return "Authorization header missing or invalid"
	}
	return "Token validation failed: " + ve.Message
}

func challenge(ve *core.ValidationError) string {
	c := `Bearer realm="` + Realm + `"`
	if ve.Kind == core.KindMissingOrMalformedHeader {
		return c
	}
	return c + `, error="invalid_token", error_description="` + quoteEscape(ve.Message) + `"`
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteEscape(s string) string {
	return quoteEscaper.Replace(s)
}
