// Package transport provides the stdio transport of the resource server.
//
// Messages are newline-delimited JSON-RPC 2.0: one request or notification
// per stdin line, one response or notification per stdout line. Stdout
// carries protocol traffic only; diagnostics go to the configured logger.
//
//	t := transport.NewStdio(
//	    transport.WithLogger(logger),
//	    transport.WithEvents(events),
//	)
//	err := t.Serve(ctx, handler)
//
// # Events
//
// Background producers never write to stdout themselves. They send an Event
// on the channel passed to WithEvents and the loop runs it between messages,
// so the loop stays the single writer of both stdout and server state:
//
//	events <- func(ctx context.Context, sender transport.NotificationSender) {
//	    srv.ApplyStatus(snap, sender)
//	}
//
// # Shutdown
//
// Serve returns nil when stdin reaches EOF and ctx.Err() when ctx is
// cancelled. ShutdownManager then runs the registered hooks:
//
//	sm := transport.NewShutdownManager(transport.DefaultShutdownConfig())
//	sm.OnShutdown("log file", func(context.Context) error { return f.Close() })
//	defer sm.Shutdown(context.Background())
package transport
