package core

// Status tags the result of an authentication attempt.
type Status int

const (
	// StatusRejected means the request must not reach downstream handlers.
	StatusRejected Status = iota
	// StatusAuthenticated means the token was verified and Claims is set.
	StatusAuthenticated
	// StatusBypassed means authentication is disabled by configuration.
	StatusBypassed
)

// String returns the lower-case name used in logs and metric labels.
func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusBypassed:
		return "bypassed"
	default:
		return "rejected"
	}
}

// Outcome is the result of Core.Authenticate. Exactly one of Claims (for
// StatusAuthenticated) or Err (for StatusRejected) is set; a bypassed
// outcome carries neither.
type Outcome struct {
	Status Status
	Claims any
	Err    *ValidationError
}

// Authenticated builds a successful outcome.
func Authenticated(claims any) Outcome {
	return Outcome{Status: StatusAuthenticated, Claims: claims}
}

// Bypassed builds the outcome used when authentication is disabled.
func Bypassed() Outcome {
	return Outcome{Status: StatusBypassed}
}

// Rejected builds a rejection outcome from err.
func Rejected(err error) Outcome {
	return Outcome{Status: StatusRejected, Err: AsValidationError(err)}
}

// Allowed reports whether the request may proceed.
func (o Outcome) Allowed() bool {
	return o.Status != StatusRejected
}
