// Package grpc provides gRPC server interceptors backed by the same core as
// the HTTP gate.
//
// The interceptors read the "authorization" metadata entry, run it through
// core.Authenticate and either call the handler with the claims in its
// context or fail the call with codes.Unauthenticated. The rejection kind is
// attached as an errdetails.ErrorInfo; RejectionKind reads it back on the
// client side.
//
//	c, err := entraid.NewCore(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	interceptor, err := jwtgrpc.New(
//	    jwtgrpc.WithCore(c),
//	    jwtgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// Inside a handler:
//
//	claims, err := jwtgrpc.GetClaims[*validator.ValidatedClaims](ctx)
//
// Streams are authenticated once when they are opened; a token that expires
// mid-stream does not terminate it.
package grpc
