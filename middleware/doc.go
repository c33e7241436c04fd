// Package middleware provides request middleware for the resource server.
//
// Each middleware wraps the next handler in the chain, allowing pre- and
// post-processing of decoded JSON-RPC messages:
//
//	chain := middleware.Chain(
//	    middleware.Recover(),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)
//	handler := chain(srv.HandleRequest)
//
// # Available Middleware
//
//   - Recover: converts panics into -32000 server errors
//   - RequestID: injects a uuid request ID into the context
//   - Logging: logs method, duration, request ID and error code
//   - Timeout: bounds each request's context
//   - SizeLimit: rejects oversized params with -32602
//   - RateLimit: token bucket limiting via fortify, -32003 when exceeded
//   - OTel: OpenTelemetry spans and request metrics
//
// Stack assembles these from configuration:
//
//	stack := middleware.Stack(logger, middleware.StackOptions{
//	    Timeout:       30 * time.Second,
//	    MaxParamBytes: 64 * middleware.KB,
//	})
package middleware
