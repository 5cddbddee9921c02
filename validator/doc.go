/*
Package validator verifies Entra ID bearer tokens with lestrrat-go/jwx.

ValidateToken runs a fixed sequence and stops at the first failure:

 1. the token is a compact JWS: three segments, decodable header (core.KindMalformedToken)
 2. the header's alg is accepted, RS256 by default (core.KindInvalidSignature)
 3. the key named by the header's kid is resolved (core.KindUnknownKey, core.KindKeySetFetchFailed)
 4. the signature verifies against that key (core.KindInvalidSignature)
 5. ValidateClaims: issuer, then audience, then expiry
    (core.KindInvalidIssuer, core.KindInvalidAudience, core.KindExpired)

Claims are never looked at before the signature has been verified, so an
expired token with a forged signature is reported as an invalid signature.

# Usage

	cache, _ := jwks.New(jwks.WithKeySetURL(keySetURL))

	v, err := validator.New(
	    validator.WithKeyFunc(cache.Key),
	    validator.WithIssuers(
	        "https://login.microsoftonline.com/<tenant>/v2.0",
	        "https://sts.windows.net/<tenant>/",
	    ),
	    validator.WithAudience("<client-id>"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.ValidateToken(ctx, token)
	if err != nil {
	    // err is a *core.ValidationError
	}
	vc := claims.(*validator.ValidatedClaims)

# Claims

ValidatedClaims carries the registered claims plus every other claim in Extra.
Entra-specific accessors read oid, tid, scp and roles.
*/
package validator
