package jwtmiddleware

import (
	"net/http"
)

// TokenExtractor returns the raw credential header value of a request, for
// example "Bearer eyJ...". Parsing the scheme is left to core so that every
// adapter rejects a malformed header the same way. An absent header is the
// empty string.
type TokenExtractor func(r *http.Request) string

// AuthHeaderTokenExtractor reads the Authorization header.
func AuthHeaderTokenExtractor(r *http.Request) string {
	return r.Header.Get("Authorization")
}

// HeaderTokenExtractor builds a TokenExtractor that reads the named header
// instead, for deployments behind a proxy that relocates the credential.
func HeaderTokenExtractor(name string) TokenExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// MultiTokenExtractor returns a TokenExtractor that runs multiple
// TokenExtractors and takes the first non-empty value.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) string {
		for _, ex := range extractors {
			if v := ex(r); v != "" {
				return v
			}
		}
		return ""
	}
}
