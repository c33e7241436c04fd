package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/mcp-resources/protocol"
)

// Timeout returns middleware that enforces a request deadline.
// The handler's context is cancelled after d; a handler that gives up with
// context.DeadlineExceeded is reported as a -32000 server error.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			resp, err := next(ctx, req)
			if errors.Is(err, context.DeadlineExceeded) {
				var mcpErr *protocol.Error
				if !errors.As(err, &mcpErr) {
					return nil, protocol.NewServerError("Server error: request timed out after " + d.String())
				}
			}
			return resp, err
		}
	}
}
