package validator

import (
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ValidatedClaims is what the gate stores in the request context after a
// token has been verified. The registered claims are promoted, so
// claims.Subject and claims.RegisteredClaims.Subject are the same field.
type ValidatedClaims struct {
	RegisteredClaims
	// Extra holds every claim that is not a registered claim, as decoded
	// from JSON.
	Extra map[string]any
}

// RegisteredClaims represents public claim
// values (as specified in RFC 7519).
type RegisteredClaims struct {
	Issuer    string   `json:"iss,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  []string `json:"aud,omitempty"`
	Expiry    int64    `json:"exp,omitempty"`
	NotBefore int64    `json:"nbf,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	ID        string   `json:"jti,omitempty"`
}

func newValidatedClaims(token jwt.Token) *ValidatedClaims {
	return &ValidatedClaims{
		RegisteredClaims: RegisteredClaims{
			Issuer:    token.Issuer(),
			Subject:   token.Subject(),
			Audience:  token.Audience(),
			Expiry:    unixOrZero(token.Expiration()),
			NotBefore: unixOrZero(token.NotBefore()),
			IssuedAt:  unixOrZero(token.IssuedAt()),
			ID:        token.JwtID(),
		},
		Extra: token.PrivateClaims(),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// StringClaim returns the named extra claim if it is a string.
func (c *ValidatedClaims) StringClaim(name string) string {
	s, _ := c.Extra[name].(string)
	return s
}

// ObjectID returns the caller's directory object id (oid).
func (c *ValidatedClaims) ObjectID() string {
	return c.StringClaim("oid")
}

// TenantID returns the tenant that issued the token (tid).
func (c *ValidatedClaims) TenantID() string {
	return c.StringClaim("tid")
}

// Scopes returns the delegated scopes (scp), split on spaces.
func (c *ValidatedClaims) Scopes() []string {
	return strings.Fields(c.StringClaim("scp"))
}

// Roles returns the application roles (roles).
func (c *ValidatedClaims) Roles() []string {
	raw, _ := c.Extra["roles"].([]any)
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
