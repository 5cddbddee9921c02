package jwtmiddleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// Metric names recorded by CheckJWT.
const (
	MetricRequestsTotal   = "jwt_auth_requests_total"
	MetricDurationSeconds = "jwt_auth_duration_seconds"
)

// JWTMiddleware is the HTTP authentication gate. Every request that is not
// excluded is run through core.Authenticate exactly once; rejected requests
// never reach the wrapped handler.
type JWTMiddleware struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// Logger defines an optional logging interface compatible with log/slog.
// It is the same interface used by core so one logger serves the whole stack.
type Logger = core.Logger

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from JWT validation.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new JWTMiddleware instance with the supplied options.
//
// Example:
//
//	c, err := entraid.NewCore(cfg)
//	if err != nil {
//	    log.Fatalf("failed to build core: %v", err)
//	}
//	middleware, err := jwtmiddleware.New(jwtmiddleware.WithCore(c))
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*JWTMiddleware, error) {
	m := &JWTMiddleware{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", err)
	}

	m.applyDefaults()

	return m, nil
}

// validate ensures all required fields are set
func (m *JWTMiddleware) validate() error {
	if m.core == nil {
		return ErrCoreNil
	}
	return nil
}

func (m *JWTMiddleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
	if m.metrics == nil {
		m.metrics = &NoopMetrics{}
	}
	if m.tracer == nil {
		m.tracer = &NoopTracer{}
	}
}

// GetClaims retrieves claims from the context with type safety using generics.
//
// Example:
//
//	claims, err := jwtmiddleware.GetClaims[*validator.ValidatedClaims](r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get claims", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(claims.Subject)
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims from the context or panics.
// Use only behind CheckJWT on a gate whose authentication is enabled.
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

// AuthDisabled reports whether the request passed the gate only because
// authentication is turned off. Handlers use it to tell "anonymous by
// configuration" apart from "authenticated".
func AuthDisabled(ctx context.Context) bool {
	return core.AuthDisabled(ctx)
}

// CheckJWT is the main JWTMiddleware function which performs the main logic. It
// is passed a http.Handler which will be called if the request is allowed.
func (m *JWTMiddleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			if m.logger != nil {
				m.logger.Debug("skipping JWT validation for excluded URL",
					"method", r.Method,
					"path", r.URL.Path)
			}
			next.ServeHTTP(w, r)
			return
		}
		// If we don't validate on OPTIONS and this is OPTIONS
		// then continue onto next without validating.
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			if m.logger != nil {
				m.logger.Debug("skipping JWT validation for OPTIONS request")
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := m.tracer.StartSpan(r.Context(), "jwtmiddleware.CheckJWT")
		defer span.Finish()

		start := time.Now()
		outcome := m.core.Authenticate(ctx, m.tokenExtractor(r))
		m.record(outcome, time.Since(start))

		span.SetTag("auth.status", outcome.Status.String())

		if !outcome.Allowed() {
			span.SetTag("auth.rejection_kind", string(outcome.Err.Kind))
			span.SetError(outcome.Err)
			if m.logger != nil {
				m.logger.Warn("request rejected",
					"kind", outcome.Err.Kind,
					"method", r.Method,
					"path", r.URL.Path)
			}
			m.errorHandler(w, r, outcome.Err)
			return
		}

		next.ServeHTTP(w, r.Clone(core.WithOutcome(ctx, outcome)))
	})
}

func (m *JWTMiddleware) record(outcome core.Outcome, elapsed time.Duration) {
	labels := map[string]string{
		"status": outcome.Status.String(),
		"kind":   "",
	}
	if outcome.Err != nil {
		labels["kind"] = string(outcome.Err.Kind)
	}
	m.metrics.IncCounter(MetricRequestsTotal, labels)
	m.metrics.ObserveHistogram(MetricDurationSeconds, elapsed.Seconds(), map[string]string{"status": labels["status"]})
}
