// Package server provides the core MCP resource server implementation.
//
// It holds the resource registry, the negotiated capability set, the
// subscription set and the method dispatch table. Most users should use
// the higher-level mcp package instead of using this package directly.
//
// # Server
//
//	srv := server.New(server.Info{
//	    Name:    "my-server",
//	    Version: "1.0.0",
//	    Capabilities: server.Capabilities{
//	        Resources: true,
//	        Subscribe: true,
//	    },
//	})
//
// # Resources
//
// Resources are either values implementing Resource or closures registered
// through the fluent builder:
//
//	srv.Resource("generated://greeting").
//	    Name("Greeting").
//	    Description("A friendly greeting").
//	    MimeType("text/plain").
//	    Handler(func(ctx context.Context) (string, error) {
//	        return "hello", nil
//	    })
//
// Registering a URI twice fails with ErrDuplicateResource.
//
// # Dispatch
//
// Method names are mapped to handlers by HandlerKey, which replaces '.' and
// '/' with '_'. Unknown methods yield -32601; handler failures are reported
// as -32000 and never escape HandleRequest.
//
// # Negotiation
//
// mcp.version lists the negotiable packages and is followed by an
// mcp.client.info notification. mcp.negotiate enables packages;
// mcp.resource.status answers only once mcp-resource-status is enabled.
package server
