package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/protocol"
)

// InitializeParams is the payload of an initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ClientInfo      *ClientInfo    `json:"clientInfo,omitempty"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadParams is the payload of resources/read.
type ReadParams struct {
	URI string `json:"uri"`
}

// decodeParams unmarshals params into v, mapping failures to -32602.
func decodeParams(params json.RawMessage, v any) error {
	if err := json.Unmarshal(params, v); err != nil {
		return protocol.NewInvalidParams("Invalid params: " + err.Error())
	}
	return nil
}

func (s *Server) handleInitialize(_ context.Context, _, params json.RawMessage) (any, error) {
	var p InitializeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	fields := []logging.Field{logging.F("protocolVersion", p.ProtocolVersion)}
	if p.ClientInfo != nil {
		fields = append(fields,
			logging.F("client", p.ClientInfo.Name),
			logging.F("clientVersion", p.ClientInfo.Version),
		)
	}
	s.logger.Info("initialize", fields...)

	manifest := s.Manifest()

	capabilities := make(map[string]any)
	if manifest.Capabilities.Resources {
		capabilities["resources"] = map[string]any{
			"subscribe":   manifest.Capabilities.Subscribe,
			"listChanged": false,
		}
	}

	return map[string]any{
		"protocolVersion": manifest.ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    manifest.Name,
			"version": manifest.Version,
		},
		"capabilities": capabilities,
	}, nil
}

func (s *Server) handleInitialized(_ context.Context, _, _ json.RawMessage) (any, error) {
	s.logger.Info("client initialized")
	return nil, nil
}

func (s *Server) handlePing(_ context.Context, _, _ json.RawMessage) (any, error) {
	return map[string]any{}, nil
}

func (s *Server) handleResourcesList(_ context.Context, _, _ json.RawMessage) (any, error) {
	return map[string]any{
		"resources": s.registry.List(),
	}, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, _, params json.RawMessage) (any, error) {
	uri, err := requireURI(params)
	if err != nil {
		return nil, err
	}

	content, err := s.registry.Read(ctx, uri)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, protocol.NewNotFound("Resource not found: " + uri)
		}
		s.logger.Error("resource read failed",
			logging.F("uri", uri),
			logging.Err(err),
		)
		return nil, protocol.NewServerError("Failed to read resource: " + err.Error())
	}

	return map[string]any{
		"contents": []*ResourceContent{content},
	}, nil
}

func (s *Server) handleResourcesSubscribe(_ context.Context, _, params json.RawMessage) (any, error) {
	uri, err := s.requireKnownURI(params)
	if err != nil {
		return nil, err
	}
	s.subs.Subscribe(uri)
	s.logger.Info("resource subscribed", logging.F("uri", uri))
	return map[string]any{}, nil
}

func (s *Server) handleResourcesUnsubscribe(_ context.Context, _, params json.RawMessage) (any, error) {
	uri, err := s.requireKnownURI(params)
	if err != nil {
		return nil, err
	}
	s.subs.Unsubscribe(uri)
	s.logger.Info("resource unsubscribed", logging.F("uri", uri))
	return map[string]any{}, nil
}

func requireURI(params json.RawMessage) (string, error) {
	var p ReadParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.URI == "" {
		return "", protocol.NewInvalidParams("Missing required parameter: uri")
	}
	return p.URI, nil
}

func (s *Server) requireKnownURI(params json.RawMessage) (string, error) {
	uri, err := requireURI(params)
	if err != nil {
		return "", err
	}
	if _, err := s.registry.Get(uri); err != nil {
		return "", protocol.NewNotFound("Resource not found: " + uri)
	}
	return uri, nil
}
