package validator

import (
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithKeyFunc sets the function that resolves a token's signing key.
// This is a required option; pass (*jwks.Cache).Key.
func WithKeyFunc(keyFunc KeyFunc) Option {
	return func(v *Validator) error {
		if keyFunc == nil {
			return errors.New("keyFunc cannot be nil")
		}
		v.keyFunc = keyFunc
		return nil
	}
}

// WithIssuers sets the accepted issuer claims (iss). This is a required
// option. Entra ID uses a different issuer for v1.0 and v2.0 tokens, so both
// are usually passed.
func WithIssuers(issuers ...string) Option {
	return func(v *Validator) error {
		if len(issuers) == 0 {
			return errors.New("issuers cannot be empty")
		}
		for i, iss := range issuers {
			if iss == "" {
				return fmt.Errorf("issuer at index %d cannot be empty", i)
			}
		}
		v.issuers = issuers
		return nil
	}
}

// WithAudience sets the expected audience claim (aud). This is a required
// option. A token is accepted when aud equals it or, for a list, contains it.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.audience = audience
		return nil
	}
}

// WithAlgorithms replaces the accepted signature algorithms (default RS256).
func WithAlgorithms(algorithms ...SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if len(algorithms) == 0 {
			return errors.New("algorithms cannot be empty")
		}
		accepted := make(map[SignatureAlgorithm]bool, len(algorithms))
		for _, alg := range algorithms {
			if !allowedSigningAlgorithms[alg] {
				return fmt.Errorf("unsupported signature algorithm: %s", alg)
			}
			accepted[alg] = true
		}
		v.algorithms = accepted
		return nil
	}
}

// WithAllowedClockSkew sets how long after exp a token is still accepted.
// If not set, the default is 0 (no clock skew allowed).
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}

// WithClock replaces the wall clock used for the expiry check.
func WithClock(clk clock.PassiveClock) Option {
	return func(v *Validator) error {
		if clk == nil {
			return errors.New("clock cannot be nil")
		}
		v.clock = clk
		return nil
	}
}
