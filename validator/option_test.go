package validator

import (
	"context"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noKey(context.Context, string) (jwk.Key, error) {
	return nil, nil
}

func TestNew(t *testing.T) {
	required := []Option{
		WithKeyFunc(noKey),
		WithIssuers("https://login.microsoftonline.com/t/v2.0"),
		WithAudience("client-id"),
	}

	t.Run("defaults", func(t *testing.T) {
		v, err := New(required...)
		require.NoError(t, err)

		assert.Equal(t, map[SignatureAlgorithm]bool{RS256: true}, v.algorithms)
		assert.Zero(t, v.allowedClockSkew)
	})

	t.Run("missing required options", func(t *testing.T) {
		for name, opts := range map[string][]Option{
			"keyFunc":  {WithIssuers("iss"), WithAudience("aud")},
			"issuers":  {WithKeyFunc(noKey), WithAudience("aud")},
			"audience": {WithKeyFunc(noKey), WithIssuers("iss")},
		} {
			t.Run(name, func(t *testing.T) {
				_, err := New(opts...)
				require.Error(t, err)
				assert.Contains(t, err.Error(), name)
			})
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		for name, opt := range map[string]Option{
			"nil keyFunc":          WithKeyFunc(nil),
			"no issuers":           WithIssuers(),
			"empty issuer":         WithIssuers("https://sts.windows.net/t/", ""),
			"empty audience":       WithAudience(""),
			"no algorithms":        WithAlgorithms(),
			"symmetric algorithm":  WithAlgorithms(RS256, SignatureAlgorithm("HS256")),
			"none algorithm":       WithAlgorithms(SignatureAlgorithm("none")),
			"negative clock skew":  WithAllowedClockSkew(-time.Second),
			"nil clock":            WithClock(nil),
		} {
			t.Run(name, func(t *testing.T) {
				_, err := New(append(required, opt)...)
				assert.Error(t, err)
			})
		}
	})

	t.Run("custom algorithms", func(t *testing.T) {
		v, err := New(append(required, WithAlgorithms(RS256, ES256))...)
		require.NoError(t, err)
		assert.Equal(t, map[SignatureAlgorithm]bool{RS256: true, ES256: true}, v.algorithms)
	})
}
