// Package testutil provides testing utilities for MCP resource servers.
//
// TestClient drives a server in memory through the full middleware chain.
// LineClient drives ServeStdio over pipes, one JSON line at a time.
//
// Example usage:
//
//	func TestMyServer(t *testing.T) {
//	    srv := mcp.NewServer(mcp.ServerInfo{Name: "test", Version: "1.0.0"})
//	    srv.Resource("generated://greeting").
//	        MimeType("text/plain").
//	        Handler(func(ctx context.Context) (string, error) {
//	            return "hello", nil
//	        })
//
//	    tc := testutil.NewTestClient(t, srv)
//	    text, err := tc.ReadResource("generated://greeting")
//	    ...
//	}
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/felixgeelhaar/mcp-resources"
	"github.com/felixgeelhaar/mcp-resources/protocol"
	"github.com/felixgeelhaar/mcp-resources/server"
	"github.com/felixgeelhaar/mcp-resources/status"
	"github.com/felixgeelhaar/mcp-resources/transport"
)

// TestClient is an in-memory client for MCP servers.
type TestClient struct {
	t       testing.TB
	handler transport.Handler
	reqID   int64
	mu      sync.Mutex

	notifications []*protocol.Notification
}

// NewTestClient creates a test client for srv and sends initialize.
func NewTestClient(t testing.TB, srv *server.Server, mw ...mcp.Middleware) *TestClient {
	t.Helper()

	tc := NewTestClientWithHandler(t, mcp.NewHandler(srv, mw...))
	if _, err := tc.Initialize(); err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}
	return tc
}

// NewTestClientWithHandler creates a test client with a custom handler.
// This is useful for testing middleware.
func NewTestClientWithHandler(t testing.TB, handler transport.Handler) *TestClient {
	t.Helper()
	return &TestClient{
		t:       t,
		handler: handler,
	}
}

// SendNotification records notifications emitted while handling a request.
func (tc *TestClient) SendNotification(method string, params any) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.notifications = append(tc.notifications, protocol.NewNotification(method, params))
	return nil
}

// Notifications returns and clears the recorded notifications.
func (tc *TestClient) Notifications() []*protocol.Notification {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := tc.notifications
	tc.notifications = nil
	return out
}

func (tc *TestClient) nextID() json.RawMessage {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.reqID++
	return json.RawMessage(fmt.Sprintf("%d", tc.reqID))
}

// SendRequest sends a request and returns the response.
func (tc *TestClient) SendRequest(method string, params any) (*protocol.Response, error) {
	tc.t.Helper()

	var paramsData json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsData = data
	}

	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      tc.nextID(),
		Method:  method,
		Params:  paramsData,
	}

	ctx := transport.ContextWithNotificationSender(context.Background(), tc)
	return tc.handler.HandleRequest(ctx, req)
}

// call sends a request and decodes its result into v.
func (tc *TestClient) call(method string, params any, v any) error {
	tc.t.Helper()

	resp, err := tc.SendRequest(method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if v == nil {
		return nil
	}
	return DecodeResult(resp, v)
}

// DecodeResult re-encodes resp.Result and decodes it into v, giving the
// value a peer would see on the wire.
func DecodeResult(resp *protocol.Response, v any) error {
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// Initialize sends an initialize request to the server.
func (tc *TestClient) Initialize() (map[string]any, error) {
	tc.t.Helper()

	var result map[string]any
	err := tc.call(protocol.MethodInitialize, map[string]any{
		"protocolVersion": protocol.MCPVersion,
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "1.0.0",
		},
	}, &result)
	return result, err
}

// ListResources lists all registered resources.
func (tc *TestClient) ListResources() ([]server.ResourceInfo, error) {
	tc.t.Helper()

	var result struct {
		Resources []server.ResourceInfo `json:"resources"`
	}
	if err := tc.call(protocol.MethodResourcesList, nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource reads a resource and returns the text of its single content.
func (tc *TestClient) ReadResource(uri string) (string, error) {
	tc.t.Helper()

	var result struct {
		Contents []server.ResourceContent `json:"contents"`
	}
	if err := tc.call(protocol.MethodResourcesRead, map[string]string{"uri": uri}, &result); err != nil {
		return "", err
	}
	if len(result.Contents) != 1 {
		return "", fmt.Errorf("expected 1 content, got %d", len(result.Contents))
	}
	return result.Contents[0].Text, nil
}

// Subscribe subscribes to change notifications for uri.
func (tc *TestClient) Subscribe(uri string) error {
	tc.t.Helper()
	return tc.call(protocol.MethodResourcesSubscribe, map[string]string{"uri": uri}, nil)
}

// Version sends mcp.version.
func (tc *TestClient) Version() (*server.VersionResult, error) {
	tc.t.Helper()

	var result server.VersionResult
	if err := tc.call(protocol.MethodVersion, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Negotiate enables the given packages.
func (tc *TestClient) Negotiate(packages ...string) error {
	tc.t.Helper()
	if packages == nil {
		packages = []string{}
	}
	return tc.call(protocol.MethodNegotiate, map[string]any{"packages": packages}, nil)
}

// Status reads the status snapshot through mcp.resource.status.
func (tc *TestClient) Status() (status.Snapshot, error) {
	tc.t.Helper()

	var snap status.Snapshot
	err := tc.call(protocol.MethodResourceStatus, nil, &snap)
	return snap, err
}

// Ping sends a ping request.
func (tc *TestClient) Ping() error {
	tc.t.Helper()
	return tc.call(protocol.MethodPing, nil, nil)
}

// AssertResourceExists asserts that a resource with the given URI is listed.
func (tc *TestClient) AssertResourceExists(uri string) {
	tc.t.Helper()

	resources, err := tc.ListResources()
	if err != nil {
		tc.t.Fatalf("ListResources failed: %v", err)
	}

	for _, res := range resources {
		if res.URI == uri {
			return
		}
	}
	tc.t.Errorf("resource %q not found", uri)
}

// AssertErrorCode asserts that err is a protocol error with the given code.
func AssertErrorCode(t testing.TB, err error, code int) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error code %d, got nil", code)
	}
	perr, ok := err.(*protocol.Error)
	if !ok {
		t.Fatalf("expected *protocol.Error, got %T: %v", err, err)
	}
	if perr.Code != code {
		t.Errorf("error code = %d, want %d (%s)", perr.Code, code, perr.Message)
	}
}
