package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

const maxDocumentSize = 1 << 20

// WellKnownEndpoints holds the well known OIDC endpoints.
type WellKnownEndpoints struct {
	Issuer        string `json:"issuer"`
	JWKSURI       string `json:"jwks_uri"`
	TokenEndpoint string `json:"token_endpoint,omitempty"`
}

// GetWellKnownEndpointsFromIssuerURL fetches the discovery document published
// under issuerURL and returns its endpoints.
//
// The document's issuer must equal expectedIssuer, and its jwks_uri must be an
// absolute https URL: a discovery response must never be able to redirect key
// lookups to plain http or to a different authority than the one configured.
func GetWellKnownEndpointsFromIssuerURL(
	ctx context.Context,
	client *http.Client,
	issuerURL url.URL,
	expectedIssuer string,
) (*WellKnownEndpoints, error) {
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well-known endpoints: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch well-known endpoints from %s: %w", issuerURL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("well-known endpoint %s returned status %d", issuerURL.String(), resp.StatusCode)
	}

	var wkEndpoints WellKnownEndpoints
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from well-known endpoints: %w", err)
	}

	if wkEndpoints.Issuer == "" {
		return nil, fmt.Errorf("discovery document is missing required 'issuer' field")
	}
	if wkEndpoints.Issuer != expectedIssuer {
		return nil, fmt.Errorf("issuer mismatch: expected %q, discovery document has %q", expectedIssuer, wkEndpoints.Issuer)
	}

	jwksURI, err := url.Parse(wkEndpoints.JWKSURI)
	if err != nil || wkEndpoints.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document has no usable 'jwks_uri'")
	}
	if jwksURI.Scheme != "https" || jwksURI.Host == "" {
		return nil, fmt.Errorf("discovery document 'jwks_uri' must be an absolute https URL, got %q", wkEndpoints.JWKSURI)
	}

	return &wkEndpoints, nil
}
