/*
Package core provides the framework-agnostic authentication engine shared by the
HTTP gate, the gin and echo adapters and the gRPC interceptors.

A Core turns the raw value of an Authorization header into an Outcome:

	┌──────────────────────────────────────────────┐
	│  Transport adapters (net/http, gin, echo,    │
	│  gRPC): read the header, act on the Outcome  │
	└────────────────┬─────────────────────────────┘
	                 │ Authenticate(ctx, header)
	                 ▼
	┌──────────────────────────────────────────────┐
	│  Core (THIS PACKAGE)                         │
	│  • bypass when authentication is disabled    │
	│  • bearer extraction                         │
	│  • rejection classification (Kind)           │
	└────────────────┬─────────────────────────────┘
	                 │ ValidateToken(ctx, token)
	                 ▼
	┌──────────────────────────────────────────────┐
	│  Validator (signature + claims) backed by a  │
	│  key-set cache                               │
	└──────────────────────────────────────────────┘

# Outcomes

Every call to Authenticate yields exactly one of three results:

	outcome := c.Authenticate(ctx, r.Header.Get("Authorization"))
	switch outcome.Status {
	case core.StatusBypassed:
	    // authentication disabled by configuration
	case core.StatusAuthenticated:
	    // outcome.Claims holds the verified claims
	case core.StatusRejected:
	    // outcome.Err.Kind says why, outcome.Err.Message is safe to show
	}

Failures never escape as panics or bare errors: they are classified into one of
the Kind constants so adapters can render a precise rejection.

# Context helpers

Adapters store verified claims with SetClaims; handlers read them back with the
generic GetClaims:

	claims, err := core.GetClaims[*validator.ValidatedClaims](ctx)
*/
package core
