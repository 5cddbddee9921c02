package grpc

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// ErrorDomain is the ErrorInfo domain attached to rejection statuses.
const ErrorDomain = "entra-jwt-middleware"

// ErrorHandler converts a rejection into the error returned to the client.
type ErrorHandler func(*core.ValidationError) error

// DefaultErrorHandler answers every rejection with codes.Unauthenticated,
// including key-set outages, so clients cannot probe infrastructure state.
// The rejection kind travels as an errdetails.ErrorInfo reason.
func DefaultErrorHandler(err *core.ValidationError) error {
	msg := "Token validation failed: " + err.Message
	if err.Kind == core.KindMissingOrMalformedHeader {
		msg = "Authorization header missing or invalid"
	}

	st := status.New(codes.Unauthenticated, msg)
	withInfo, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(err.Kind),
		Domain: ErrorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// RejectionKind recovers the rejection kind from a status error produced by
// DefaultErrorHandler. It returns "" for any other error.
func RejectionKind(err error) core.Kind {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return core.Kind(info.GetReason())
		}
	}
	return ""
}
