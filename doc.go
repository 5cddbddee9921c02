/*
Package jwtmiddleware provides net/http middleware that admits only requests
carrying a valid Microsoft Entra ID access token.

The package is the HTTP transport adapter over core: it reads the
Authorization header, asks a *core.Core for an Outcome and either forwards the
request with the claims in its context or answers 401.

# Quick Start

	import (
	    jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
	    "github.com/vmdemo/entra-jwt-middleware/entraid"
	    "github.com/vmdemo/entra-jwt-middleware/validator"
	)

	func main() {
	    cfg, err := entraid.LoadConfig(".env")
	    if err != nil {
	        log.Fatal(err)
	    }

	    c, err := entraid.NewCore(cfg, entraid.WithLogger(slog.Default()))
	    if err != nil {
	        log.Fatal(err)
	    }

	    middleware, err := jwtmiddleware.New(jwtmiddleware.WithCore(c))
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.Handle("/api/", middleware.CheckJWT(apiHandler))
	    http.ListenAndServe(":8080", nil)
	}

When AZURE_TENANT_ID or AZURE_CLIENT_ID is unset, entraid.NewCore returns a
disabled core and every request passes through untouched.

# Accessing Claims

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    if jwtmiddleware.AuthDisabled(r.Context()) {
	        // anonymous by configuration
	    }
	    claims, err := jwtmiddleware.GetClaims[*validator.ValidatedClaims](r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "Hello, %s", claims.Subject)
	}

# Configuration Options

  - WithCore: the authentication engine (required)
  - WithErrorHandler: custom rejection response
  - WithTokenExtractor: read the credential from another header
  - WithValidateOnOptions: skip CORS preflight requests (default: validate)
  - WithExclusionUrls: paths or full URLs that bypass authentication
  - WithLogger: slog-compatible logger; NewZapLogger, NewLogrusLogger and
    NewZerologLogger adapt the other common loggers
  - WithMetrics: NewPrometheusMetrics records jwt_auth_requests_total and
    jwt_auth_duration_seconds labelled by outcome
  - WithTracer: NewOpenTelemetryTracer opens a span per authentication

# Error Responses

DefaultErrorHandler always answers 401 with a Bearer challenge:

	HTTP/1.1 401 Unauthorized
	Content-Type: application/json; charset=utf-8
	WWW-Authenticate: Bearer realm="Entra ID", error="invalid_token", error_description="token is expired"

	{"success":false,"error":"Unauthorized","message":"Token validation failed: token is expired","kind":"expired"}

The error attribute is omitted when no bearer token was presented. A key-set
outage is reported as kind "key_set_fetch_failed" with status 401 so that
infrastructure state is not exposed beyond the kind. Custom handlers receive a
*core.ValidationError; errors.Is works with ErrJWTMissing and ErrJWTInvalid.

# Thread Safety

JWTMiddleware holds no per-request state and is safe for concurrent use. The
only shared mutable state is the key-set cache behind the validator.
*/
package jwtmiddleware
