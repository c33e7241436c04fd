// Package mcp serves a registry of read-only resources over line-delimited
// JSON-RPC 2.0 on stdio, following the Model Context Protocol.
//
// Basic usage:
//
//	srv := mcp.NewServer(mcp.ServerInfo{
//	    Name:         "my-resources",
//	    Version:      "1.0.0",
//	    Capabilities: mcp.Capabilities{Resources: true, Subscribe: true},
//	})
//
//	srv.Resource("generated://greeting").
//	    Name("Greeting").
//	    Description("A friendly greeting").
//	    MimeType("text/plain").
//	    Handler(func(ctx context.Context) (string, error) {
//	        return "hello", nil
//	    })
//
//	mcp.ServeStdio(ctx, srv)
package mcp

import (
	"context"
	"errors"
	"io"

	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/middleware"
	"github.com/felixgeelhaar/mcp-resources/protocol"
	"github.com/felixgeelhaar/mcp-resources/server"
	"github.com/felixgeelhaar/mcp-resources/status"
	"github.com/felixgeelhaar/mcp-resources/transport"
	"github.com/felixgeelhaar/mcp-resources/watch"
)

// ServerInfo contains server metadata exposed to clients.
type ServerInfo = server.Info

// Capabilities declares what features the server supports.
type Capabilities = server.Capabilities

// Server is the MCP server instance.
type Server = server.Server

// Option configures a Server.
type Option = server.Option

// Resource types
type Resource = server.Resource
type ResourceInfo = server.ResourceInfo
type ResourceContent = server.ResourceContent

// Middleware types
type Middleware = middleware.Middleware
type HandlerFunc = middleware.HandlerFunc
type Logger = logging.Logger
type LogField = logging.Field

// Event is work run on the stdio loop between two messages.
type Event = transport.Event

// NotificationSender sends notifications to the peer.
type NotificationSender = transport.NotificationSender

// Size limit presets.
const (
	KB = middleware.KB
	MB = middleware.MB
)

// ServeOption configures how the server is run.
type ServeOption func(*serveOptions)

type serveOptions struct {
	middleware []Middleware
	logger     Logger
	in         io.Reader
	out        io.Writer
	events     <-chan Event
	shutdown   *transport.ShutdownManager
	simulator  *status.Simulator
	watcher    *watch.Watcher
}

// WithMiddleware adds middleware to the request handling chain.
func WithMiddleware(m ...Middleware) ServeOption {
	return func(o *serveOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithLogger sets the diagnostic logger of the transport and the forwarders.
func WithLogger(l Logger) ServeOption {
	return func(o *serveOptions) {
		o.logger = l
	}
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) ServeOption {
	return func(o *serveOptions) {
		o.in = in
		o.out = out
	}
}

// WithEvents runs caller-supplied events on the loop.
func WithEvents(events <-chan Event) ServeOption {
	return func(o *serveOptions) {
		o.events = events
	}
}

// WithShutdownManager tracks in-flight messages for graceful shutdown.
func WithShutdownManager(sm *transport.ShutdownManager) ServeOption {
	return func(o *serveOptions) {
		o.shutdown = sm
	}
}

// WithStatusSimulator applies each simulated snapshot to the server and
// pushes it to peers that negotiated mcp-resource-status.
func WithStatusSimulator(sim *status.Simulator) ServeOption {
	return func(o *serveOptions) {
		o.simulator = sim
	}
}

// WithWatcher sends resources/updated notifications for subscribed
// resources the watcher reports as changed.
func WithWatcher(w *watch.Watcher) ServeOption {
	return func(o *serveOptions) {
		o.watcher = w
	}
}

// NewServer creates a new MCP server with the given info and options.
func NewServer(info ServerInfo, opts ...Option) *Server {
	return server.New(info, opts...)
}

// ServeStdio runs the server on stdio until EOF, an input error or ctx
// cancellation. EOF and cancellation return nil.
func ServeStdio(ctx context.Context, srv *Server, opts ...ServeOption) error {
	options := &serveOptions{logger: logging.Nop{}}
	for _, opt := range opts {
		opt(options)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event)
	forward(runCtx, events, options.events)
	if options.simulator != nil {
		forwardStatus(runCtx, srv, events, options.simulator)
	}
	if options.watcher != nil {
		changes, err := options.watcher.Run(runCtx)
		if err != nil {
			options.logger.Warn("file watching disabled", logging.Err(err))
		} else {
			forwardChanges(runCtx, srv, events, changes)
		}
	}

	tOpts := []transport.StdioOption{
		transport.WithLogger(options.logger),
		transport.WithEvents(events),
	}
	if options.in != nil {
		tOpts = append(tOpts, transport.WithStdin(options.in))
	}
	if options.out != nil {
		tOpts = append(tOpts, transport.WithStdout(options.out))
	}
	if options.shutdown != nil {
		tOpts = append(tOpts, transport.WithShutdownManager(options.shutdown))
	}

	err := transport.NewStdio(tOpts...).Serve(runCtx, NewHandler(srv, options.middleware...))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// NewHandler wraps srv in the middleware chain and makes the transport's
// notification sender available to server handlers.
func NewHandler(srv *Server, mw ...Middleware) transport.Handler {
	chain := append(append([]Middleware{}, mw...), bridgeNotifier)
	return transport.HandlerFunc(middleware.Chain(chain...)(srv.HandleRequest))
}

func bridgeNotifier(next middleware.HandlerFunc) middleware.HandlerFunc {
	return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		if sender := transport.NotificationSenderFromContext(ctx); sender != nil {
			ctx = server.ContextWithNotifier(ctx, sender)
		}
		return next(ctx, req)
	}
}

func forward(ctx context.Context, out chan<- Event, in <-chan Event) {
	if in == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				if !send(ctx, out, ev) {
					return
				}
			}
		}
	}()
}

func forwardStatus(ctx context.Context, srv *Server, out chan<- Event, sim *status.Simulator) {
	snapshots := sim.Run(ctx)
	go func() {
		for snap := range snapshots {
			ev := func(_ context.Context, sender transport.NotificationSender) {
				srv.ApplyStatus(snap, sender)
			}
			if !send(ctx, out, ev) {
				return
			}
		}
	}()
}

func forwardChanges(ctx context.Context, srv *Server, out chan<- Event, changes <-chan watch.Change) {
	go func() {
		for c := range changes {
			ev := func(_ context.Context, sender transport.NotificationSender) {
				srv.ResourceChanged(c.URI, sender)
			}
			if !send(ctx, out, ev) {
				return
			}
		}
	}()
}

func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Middleware re-exports

// Chain composes multiple middleware into a single middleware.
func Chain(middlewares ...Middleware) Middleware {
	return middleware.Chain(middlewares...)
}

// DefaultMiddleware returns the recommended middleware stack.
func DefaultMiddleware(logger Logger) []Middleware {
	return middleware.DefaultStack(logger)
}

// LogF creates a new log field with the given key and value.
func LogF(key string, value any) LogField {
	return logging.F(key, value)
}
