/*
Package oidc resolves the key-set location of an identity provider from its
OpenID Connect discovery document.

Entra ID publishes the document at:

	https://login.microsoftonline.com/<tenant>/v2.0/.well-known/openid-configuration

The document's issuer is checked against the configured issuer and its
jwks_uri must be an absolute https URL before it is used:

	endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, client, *issuerURL, issuerURL.String())
	if err != nil {
	    return err
	}
	jwksURI := endpoints.JWKSURI

See OpenID Connect Discovery 1.0:
https://openid.net/specs/openid-connect-discovery-1_0.html
*/
package oidc
