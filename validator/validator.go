package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"k8s.io/utils/clock"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// Signature algorithms. Only asymmetric algorithms are accepted: a token
// service signs with a private key and publishes the public half.
const (
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	EdDSA = SignatureAlgorithm("EdDSA")
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	RS256: true,
	RS384: true,
	RS512: true,
	PS256: true,
	PS384: true,
	PS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	EdDSA: true,
}

// KeyFunc resolves the verification key named by a token's kid header.
// (*jwks.Cache).Key satisfies it.
type KeyFunc func(ctx context.Context, kid string) (jwk.Key, error)

// Validator verifies the signature of a bearer token and then checks its
// issuer, audience and expiry.
type Validator struct {
	keyFunc          KeyFunc
	algorithms       map[SignatureAlgorithm]bool
	issuers          []string
	audience         string
	allowedClockSkew time.Duration
	clock            clock.PassiveClock
}

// New sets up a new Validator.
//
// Required options: WithKeyFunc, WithIssuers and WithAudience. Tokens must
// be signed with RS256 unless WithAlgorithms says otherwise.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		algorithms: map[SignatureAlgorithm]bool{RS256: true},
		clock:      clock.RealClock{},
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.keyFunc == nil {
		return nil, errors.New("keyFunc is required (use WithKeyFunc)")
	}
	if len(v.issuers) == 0 {
		return nil, errors.New("issuers are required (use WithIssuers)")
	}
	if v.audience == "" {
		return nil, errors.New("audience is required (use WithAudience)")
	}

	return v, nil
}

// ValidateToken verifies tokenString and returns its *ValidatedClaims.
//
// The checks run in a fixed order and the first failure is returned as a
// *core.ValidationError: structure, signing algorithm, key lookup,
// signature, then ValidateClaims. Claims are only inspected once the
// signature is known to be good.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (any, error) {
	if err := validateTokenFormat(tokenString); err != nil {
		return nil, malformed(err)
	}

	msg, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, malformed(err)
	}
	if len(msg.Signatures()) != 1 {
		return nil, malformed(errors.New("token must carry exactly one signature"))
	}
	headers := msg.Signatures()[0].ProtectedHeaders()
	alg := headers.Algorithm()

	if !v.algorithms[SignatureAlgorithm(alg.String())] {
		return nil, core.NewValidationError(
			core.KindInvalidSignature,
			"token signing algorithm is not accepted",
			fmt.Errorf("algorithm %q", alg),
		)
	}

	key, err := v.keyFunc(ctx, headers.KeyID())
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return nil, ve
		}
		return nil, core.NewValidationError(core.KindKeySetFetchFailed, "signing keys are unavailable", err)
	}

	if err := checkKeyFitsAlgorithm(key, alg.String()); err != nil {
		return nil, invalidSignature(err)
	}

	payload, err := jws.Verify([]byte(tokenString), jws.WithKey(alg, key))
	if err != nil {
		return nil, invalidSignature(err)
	}

	token := jwt.New()
	if err := json.Unmarshal(payload, token); err != nil {
		return nil, core.NewValidationError(core.KindMalformedToken, "token claims are malformed", err)
	}

	claims := newValidatedClaims(token)
	if err := v.ValidateClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// ValidateClaims checks already-trusted claims, in order: issuer, audience,
// expiry. The first failing check is returned. A token without an expiry is
// treated as expired.
func (v *Validator) ValidateClaims(claims *ValidatedClaims) error {
	rc := claims.RegisteredClaims

	if !slices.Contains(v.issuers, rc.Issuer) {
		return core.NewValidationError(
			core.KindInvalidIssuer,
			"token issuer is not accepted",
			fmt.Errorf("issuer %q", rc.Issuer),
		)
	}

	if !slices.Contains(rc.Audience, v.audience) {
		return core.NewValidationError(
			core.KindInvalidAudience,
			"token audience is not accepted",
			fmt.Errorf("audience %q", rc.Audience),
		)
	}

	if rc.Expiry == 0 {
		return core.NewValidationError(core.KindExpired, "token has no expiry", nil)
	}
	expiry := time.Unix(rc.Expiry, 0).Add(v.allowedClockSkew)
	if now := v.clock.Now(); !now.Before(expiry) {
		return core.NewValidationError(
			core.KindExpired,
			"token is expired",
			fmt.Errorf("expired at %s", time.Unix(rc.Expiry, 0).UTC().Format(time.RFC3339)),
		)
	}

	return nil
}

func checkKeyFitsAlgorithm(key jwk.Key, alg string) error {
	if use := key.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
		return fmt.Errorf("key %q is not a signing key", key.KeyID())
	}
	if keyAlg := key.Algorithm(); keyAlg != nil && keyAlg.String() != "" && keyAlg.String() != alg {
		return fmt.Errorf("key %q is for %s, token uses %s", key.KeyID(), keyAlg, alg)
	}
	return nil
}

func malformed(err error) error {
	return core.NewValidationError(core.KindMalformedToken, "token is malformed", err)
}

func invalidSignature(err error) error {
	return core.NewValidationError(core.KindInvalidSignature, "token signature is invalid", err)
}
