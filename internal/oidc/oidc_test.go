package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://login.microsoftonline.com/contoso/v2.0"

func setupTestServer(t *testing.T, responseCode int, responseBody string) (*httptest.Server, *url.URL) {
	t.Helper()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contoso/v2.0/.well-known/openid-configuration", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(responseCode)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(server.Close)

	issuerURL, err := url.Parse(server.URL + "/contoso/v2.0")
	require.NoError(t, err)

	return server, issuerURL
}

func TestGetWellKnownEndpointsFromIssuerURL(t *testing.T) {
	tests := []struct {
		name          string
		responseCode  int
		responseBody  string
		errorContains string
	}{
		{
			name:         "valid document",
			responseCode: http.StatusOK,
			responseBody: `{"issuer":"` + testIssuer + `","jwks_uri":"https://login.microsoftonline.com/contoso/discovery/v2.0/keys"}`,
		},
		{
			name:          "not found",
			responseCode:  http.StatusNotFound,
			responseBody:  `{"error":"not found"}`,
			errorContains: "returned status 404",
		},
		{
			name:          "server error",
			responseCode:  http.StatusInternalServerError,
			responseBody:  `Internal Server Error`,
			errorContains: "returned status 500",
		},
		{
			name:          "malformed JSON",
			responseCode:  http.StatusOK,
			responseBody:  `{"jwks_uri": "https://example.com/jwks"`,
			errorContains: "failed to decode JSON",
		},
		{
			name:          "missing issuer",
			responseCode:  http.StatusOK,
			responseBody:  `{"jwks_uri":"https://login.microsoftonline.com/contoso/discovery/v2.0/keys"}`,
			errorContains: "missing required 'issuer' field",
		},
		{
			name:          "issuer mismatch",
			responseCode:  http.StatusOK,
			responseBody:  `{"issuer":"https://attacker.example/","jwks_uri":"https://attacker.example/keys"}`,
			errorContains: "issuer mismatch",
		},
		{
			name:          "missing jwks_uri",
			responseCode:  http.StatusOK,
			responseBody:  `{"issuer":"` + testIssuer + `"}`,
			errorContains: "no usable 'jwks_uri'",
		},
		{
			name:          "plain http jwks_uri",
			responseCode:  http.StatusOK,
			responseBody:  `{"issuer":"` + testIssuer + `","jwks_uri":"http://login.microsoftonline.com/contoso/discovery/v2.0/keys"}`,
			errorContains: "must be an absolute https URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, issuerURL := setupTestServer(t, tt.responseCode, tt.responseBody)

			endpoints, err := GetWellKnownEndpointsFromIssuerURL(context.Background(), server.Client(), *issuerURL, testIssuer)

			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://login.microsoftonline.com/contoso/discovery/v2.0/keys", endpoints.JWKSURI)
		})
	}
}

func TestGetWellKnownEndpoints_Timeout(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	issuerURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = GetWellKnownEndpointsFromIssuerURL(ctx, server.Client(), *issuerURL, server.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetWellKnownEndpoints_UntrustedCertificate(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	issuerURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	_, err = GetWellKnownEndpointsFromIssuerURL(context.Background(), &http.Client{}, *issuerURL, server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not fetch well-known endpoints")
}
