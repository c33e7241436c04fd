package providers

import (
	"context"
	"time"

	"github.com/felixgeelhaar/mcp-resources/protocol"
	"github.com/felixgeelhaar/mcp-resources/server"
)

// ServerSummary is the content of config://mcp-server.
type ServerSummary struct {
	Name            string              `json:"name"`
	Version         string              `json:"version"`
	ProtocolVersion string              `json:"protocolVersion"`
	Capabilities    server.Capabilities `json:"capabilities"`
	Resources       []string            `json:"resources"`
	Packages        map[string]string   `json:"packages"`
	Negotiated      map[string]bool     `json:"negotiated"`
	StartedAt       string              `json:"startedAt"`
}

// ServerConfig reports the running server's identity and state.
type ServerConfig struct {
	srv *server.Server
}

// NewServerConfig creates the config://mcp-server provider for srv.
func NewServerConfig(srv *server.Server) *ServerConfig {
	return &ServerConfig{srv: srv}
}

// Describe returns the metadata of the server summary resource.
func (c *ServerConfig) Describe() server.ResourceInfo {
	return server.ResourceInfo{
		URI:         URIServerConfig,
		Name:        "Server Configuration",
		Description: "Identity, capabilities and registered resources of this server",
		MimeType:    MimeJSON,
	}
}

// Produce returns the server summary as JSON.
func (c *ServerConfig) Produce(context.Context) (string, string, error) {
	manifest := c.srv.Manifest()
	summary := ServerSummary{
		Name:            manifest.Name,
		Version:         manifest.Version,
		ProtocolVersion: protocol.MCPVersion,
		Capabilities:    manifest.Capabilities,
		Packages:        c.srv.Capabilities().Supported(),
		Negotiated:      c.srv.Capabilities().State(),
		StartedAt:       c.srv.StartedAt().UTC().Format(time.RFC3339),
	}
	for _, info := range c.srv.Resources() {
		summary.Resources = append(summary.Resources, info.URI)
	}

	text, err := marshal(summary)
	return text, MimeJSON, err
}
