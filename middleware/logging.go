package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/protocol"
)

// Logger is the structured logger used by middleware.
type Logger = logging.Logger

// Field represents a key-value pair for structured logging.
type Field = logging.Field

// NopLogger is a logger that discards all log entries.
type NopLogger = logging.Nop

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return logging.F(key, value)
}

// Logging returns middleware that logs request details.
// Successful requests are logged at info level, errors at error level.
// Notifications are logged at debug level.
func Logging(logger Logger) Middleware {
	if logger == nil {
		logger = NopLogger{}
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			start := time.Now()

			resp, err := next(ctx, req)

			fields := []Field{
				F("method", req.Method),
				F("duration", time.Since(start)),
			}
			if requestID := RequestIDFromContext(ctx); requestID != "" {
				fields = append(fields, F("request_id", requestID))
			}

			switch {
			case err != nil:
				var mcpErr *protocol.Error
				if errors.As(err, &mcpErr) {
					fields = append(fields, F("code", mcpErr.Code))
				}
				fields = append(fields, F("error", err.Error()))
				logger.Error("request failed", fields...)
			case req.IsNotification():
				logger.Debug("notification handled", fields...)
			default:
				logger.Info("request completed", fields...)
			}

			return resp, err
		}
	}
}
