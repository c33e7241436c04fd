package server

import (
	"context"
	"encoding/json"

	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/protocol"
)

// NegotiateParams is the payload of mcp.negotiate.
type NegotiateParams struct {
	Packages []string `json:"packages"`
}

// VersionResult is returned by mcp.version.
type VersionResult struct {
	ProtocolVersion string            `json:"protocolVersion"`
	Packages        map[string]string `json:"packages"`
}

// ClientInfoNotification follows every mcp.version response.
type ClientInfoNotification struct {
	Server     ClientInfo      `json:"server"`
	Packages   []string        `json:"packages"`
	Negotiated map[string]bool `json:"negotiated"`
}

func (s *Server) handleVersion(ctx context.Context, _, _ json.RawMessage) (any, error) {
	result := VersionResult{
		ProtocolVersion: protocol.MCPVersion,
		Packages:        s.caps.Supported(),
	}

	// Queued by the transport until the response line has been written.
	if sender := NotifierFromContext(ctx); sender != nil {
		info := ClientInfoNotification{
			Server:     ClientInfo{Name: s.info.Name, Version: s.info.Version},
			Packages:   s.caps.Packages(),
			Negotiated: s.caps.State(),
		}
		if err := sender.SendNotification(protocol.MethodClientInfo, info); err != nil {
			s.logger.Warn("client info notification failed", logging.Err(err))
		}
	}

	return result, nil
}

func (s *Server) handleNegotiate(_ context.Context, _, params json.RawMessage) (any, error) {
	var p NegotiateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Packages == nil {
		return nil, protocol.NewInvalidParams("Missing required parameter: packages")
	}

	for _, name := range s.caps.Enable(p.Packages) {
		s.logger.Warn("unsupported package requested", logging.F("package", name))
	}
	s.logger.Info("packages negotiated", logging.F("state", s.caps.State()))

	return map[string]any{}, nil
}

func (s *Server) handleResourceStatus(_ context.Context, _, _ json.RawMessage) (any, error) {
	if !s.caps.Enabled(protocol.PackageResourceStatus) {
		return nil, protocol.NewNotFound("Capability not negotiated: " + protocol.PackageResourceStatus)
	}
	return s.Status(), nil
}
