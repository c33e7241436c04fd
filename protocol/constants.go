package protocol

// MCPVersion is the protocol version reported by initialize.
const MCPVersion = "2024-11-05"

// MCP method names.
const (
	MethodInitialize           = "initialize"
	MethodInitialized          = "notifications/initialized"
	MethodPing                 = "ping"
	MethodResourcesList        = "resources/list"
	MethodResourcesRead        = "resources/read"
	MethodResourcesSubscribe   = "resources/subscribe"
	MethodResourcesUnsubscribe = "resources/unsubscribe"
)

// Capability-negotiation extension methods.
const (
	MethodVersion        = "mcp.version"
	MethodNegotiate      = "mcp.negotiate"
	MethodResourceStatus = "mcp.resource.status"
)

// Notification methods sent by the server.
const (
	MethodResourceUpdated       = "notifications/resources/updated"
	MethodClientInfo            = "mcp.client.info"
	MethodResourceStatusChanged = "mcp.resource.status.changed"
)

// Extension packages a client can enable with mcp.negotiate.
const (
	PackageResourceStatus = "mcp-resource-status"
)
