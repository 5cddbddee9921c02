package core

import (
	"regexp"
	"strings"
)

var bearerPattern = regexp.MustCompile(`(?i)^bearer\s+(\S.*)$`)

// ExtractBearerToken returns the token carried by an Authorization header
// value of the form "Bearer <token>". The scheme is matched case-insensitively
// and surrounding whitespace is ignored. An absent header should be passed as
// the empty string.
func ExtractBearerToken(header string) (string, error) {
	m := bearerPattern.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", NewValidationError(
			KindMissingOrMalformedHeader,
			"Authorization header missing or invalid",
			nil,
		)
	}
	return strings.TrimSpace(m[1]), nil
}
