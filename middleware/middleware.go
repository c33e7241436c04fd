package middleware

import "time"

// StackOptions selects the optional layers added by Stack. Zero values
// disable a layer.
type StackOptions struct {
	// Timeout bounds each request's context.
	Timeout time.Duration
	// MaxParamBytes rejects requests whose params exceed this size.
	MaxParamBytes int64
	// Rate and Burst configure a global token bucket, in requests per second.
	Rate  int
	Burst int
	// Telemetry enables the OpenTelemetry layer with the given options.
	Telemetry []OTelOption
}

// DefaultStack returns the recommended middleware stack: panic recovery,
// request ID injection, and logging.
func DefaultStack(logger Logger) []Middleware {
	return []Middleware{
		Recover(),
		RequestID(),
		Logging(logger),
	}
}

// Stack returns DefaultStack extended with the layers enabled in opts.
// Telemetry wraps logging so spans cover the logged duration; limits run
// innermost so rejected requests are still logged and traced.
func Stack(logger Logger, opts StackOptions) []Middleware {
	stack := []Middleware{Recover(), RequestID()}
	if opts.Telemetry != nil {
		stack = append(stack, OTel(opts.Telemetry...))
	}
	stack = append(stack, Logging(logger))
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.Rate
		}
		stack = append(stack, RateLimit(opts.Rate, burst, WithRateLimitLogger(logger)))
	}
	if opts.MaxParamBytes > 0 {
		stack = append(stack, SizeLimit(opts.MaxParamBytes, WithSizeLimitLogger(logger)))
	}
	if opts.Timeout > 0 {
		stack = append(stack, Timeout(opts.Timeout))
	}
	return stack
}
