// Package e2e provides end-to-end compliance tests for the resource server.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-resources"
	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/protocol"
	"github.com/felixgeelhaar/mcp-resources/providers"
	"github.com/felixgeelhaar/mcp-resources/server"
	"github.com/felixgeelhaar/mcp-resources/status"
	"github.com/felixgeelhaar/mcp-resources/testutil"
)

func newServer(t *testing.T) *mcp.Server {
	t.Helper()

	srv := mcp.NewServer(mcp.ServerInfo{
		Name:         "compliance-test",
		Version:      "1.0.0",
		Capabilities: mcp.Capabilities{Resources: true, Subscribe: true},
	})
	err := providers.Register(srv, providers.Options{
		Root:    t.TempDir(),
		ModFile: "../go.mod",
		Rand:    rand.New(rand.NewSource(42)),
	})
	if err != nil {
		t.Fatalf("register providers: %v", err)
	}
	return srv
}

func newClient(t *testing.T, opts ...mcp.ServeOption) *testutil.LineClient {
	t.Helper()
	opts = append(opts, mcp.WithMiddleware(mcp.DefaultMiddleware(logging.Nop{})...))
	return testutil.NewLineClient(t, newServer(t), opts...)
}

func request(id any, method string, params any) map[string]any {
	req := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	return req
}

func errorCode(t *testing.T, msg *testutil.Message) int {
	t.Helper()
	if msg.Error == nil {
		t.Fatalf("expected error response, got %s", msg.Raw)
	}
	return msg.Error.Code
}

func readText(t *testing.T, msg *testutil.Message) string {
	t.Helper()
	if msg.Error != nil {
		t.Fatalf("unexpected error: %d %s", msg.Error.Code, msg.Error.Message)
	}
	var result struct {
		Contents []server.ResourceContent `json:"contents"`
	}
	if err := json.Unmarshal(msg.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(result.Contents))
	}
	return result.Contents[0].Text
}

// TestCompliance_Initialize checks the literal initialize handshake.
func TestCompliance_Initialize(t *testing.T) {
	lc := newClient(t)

	lc.Send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	msg := lc.ReadMessage()

	if string(msg.ID) != "1" {
		t.Errorf("id = %s, want 1", msg.ID)
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
		Capabilities map[string]any `json:"capabilities"`
	}
	if err := json.Unmarshal(msg.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ProtocolVersion == "" {
		t.Error("expected protocolVersion")
	}
	if result.ServerInfo.Name != "compliance-test" {
		t.Errorf("serverInfo.name = %q, want compliance-test", result.ServerInfo.Name)
	}
	if _, ok := result.Capabilities["resources"]; !ok {
		t.Error("expected resources capability")
	}
	for _, key := range []string{"tools", "prompts"} {
		if _, ok := result.Capabilities[key]; ok {
			t.Errorf("unexpected %s capability", key)
		}
	}
}

// TestCompliance_IDEcho checks that each request gets exactly one line with its id.
func TestCompliance_IDEcho(t *testing.T) {
	lc := newClient(t)

	ids := []string{`1`, `"abc"`, `42`, `"req-7"`, `0`}
	methods := []string{
		protocol.MethodPing,
		protocol.MethodResourcesList,
		protocol.MethodInitialize,
		protocol.MethodVersion,
		protocol.MethodPing,
	}

	for i, id := range ids {
		lc.Send(fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"method":%q}`, id, methods[i]))
		msg := lc.ReadMessage()
		if string(msg.ID) != id {
			t.Errorf("request %d: id = %s, want %s", i, msg.ID, id)
		}
		if methods[i] == protocol.MethodVersion {
			note := lc.ReadMessage()
			if note.Method != protocol.MethodClientInfo {
				t.Errorf("expected %s after mcp.version, got %s", protocol.MethodClientInfo, note.Raw)
			}
		}
	}
	lc.ExpectNoLine(50 * time.Millisecond)
}

// TestCompliance_ParseError checks malformed input handling.
func TestCompliance_ParseError(t *testing.T) {
	lc := newClient(t)

	inputs := []string{
		`not json`,
		`{"jsonrpc":"2.0","id":1,`,
		`{"unterminated": "`,
		`[1, 2`,
	}
	for _, in := range inputs {
		lc.Send(in)
		msg := lc.ReadMessage()
		if code := errorCode(t, msg); code != protocol.CodeParseError {
			t.Errorf("%q: code = %d, want %d", in, code, protocol.CodeParseError)
		}
		if string(msg.ID) != "null" {
			t.Errorf("%q: id = %s, want null", in, msg.ID)
		}
	}

	// The server keeps serving after bad input.
	lc.SendJSON(request(9, protocol.MethodPing, nil))
	if msg := lc.ReadMessage(); msg.Error != nil {
		t.Errorf("ping after parse errors failed: %s", msg.Raw)
	}
}

func TestCompliance_InvalidRequest(t *testing.T) {
	lc := newClient(t)

	lc.Send(`{"jsonrpc":"2.0","id":5}`)
	msg := lc.ReadMessage()
	if code := errorCode(t, msg); code != protocol.CodeInvalidRequest {
		t.Errorf("code = %d, want %d", code, protocol.CodeInvalidRequest)
	}
	if string(msg.ID) != "5" {
		t.Errorf("id = %s, want 5", msg.ID)
	}
}

func TestCompliance_MethodNotFound(t *testing.T) {
	lc := newClient(t)

	for i, method := range []string{"tools/list", "prompts/list", "unknown", "mcp.unknown", "resources/delete"} {
		lc.SendJSON(request(i+1, method, nil))
		msg := lc.ReadMessage()
		if code := errorCode(t, msg); code != protocol.CodeMethodNotFound {
			t.Errorf("%s: code = %d, want %d", method, code, protocol.CodeMethodNotFound)
		}
		if want := "Method not found: " + method; msg.Error.Message != want {
			t.Errorf("%s: message = %q, want %q", method, msg.Error.Message, want)
		}
	}
}

func TestCompliance_NotificationsGetNoReply(t *testing.T) {
	lc := newClient(t)

	lc.Send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	lc.Send(`{"jsonrpc":"2.0","method":"unknown/notification"}`)
	lc.Send(`{"jsonrpc":"2.0","method":"ping"}`)
	lc.SendJSON(request(1, protocol.MethodPing, nil))

	msg := lc.ReadMessage()
	if string(msg.ID) != "1" {
		t.Errorf("first output line = %s, want ping response with id 1", msg.Raw)
	}
}

func TestCompliance_ResourcesList(t *testing.T) {
	lc := newClient(t)

	lc.SendJSON(request(1, protocol.MethodResourcesList, nil))
	first := lc.ReadMessage()
	lc.SendJSON(request(2, protocol.MethodResourcesList, nil))
	second := lc.ReadMessage()

	if string(first.Result) != string(second.Result) {
		t.Errorf("resources/list not idempotent:\n%s\n%s", first.Result, second.Result)
	}

	var result struct {
		Resources []map[string]any `json:"resources"`
	}
	if err := json.Unmarshal(first.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Resources) != 7 {
		t.Fatalf("got %d resources, want 7", len(result.Resources))
	}
	for _, res := range result.Resources {
		for key := range res {
			switch key {
			case "uri", "name", "description", "mimeType":
			default:
				t.Errorf("resource %v has unexpected field %q", res["uri"], key)
			}
		}
	}
}

func TestCompliance_ResourcesRead(t *testing.T) {
	t.Setenv("E2E_API_TOKEN", "hidden")
	t.Setenv("E2E_DB_PASSWORD", "hidden")
	t.Setenv("E2E_VISIBLE", "shown")

	lc := newClient(t)

	t.Run("env filtered", func(t *testing.T) {
		lc.SendJSON(request(1, protocol.MethodResourcesRead, map[string]string{"uri": providers.URIEnvironment}))
		var env map[string]string
		if err := json.Unmarshal([]byte(readText(t, lc.ReadMessage())), &env); err != nil {
			t.Fatalf("decode env: %v", err)
		}
		for name := range env {
			lower := strings.ToLower(name)
			for _, word := range []string{"password", "secret", "key", "token"} {
				if strings.Contains(lower, word) {
					t.Errorf("env exposes %q", name)
				}
			}
		}
		if env["E2E_VISIBLE"] != "shown" {
			t.Errorf("E2E_VISIBLE = %q, want shown", env["E2E_VISIBLE"])
		}
	})

	t.Run("generated data", func(t *testing.T) {
		lc.SendJSON(request(2, protocol.MethodResourcesRead, map[string]string{"uri": providers.URIData}))
		var data providers.Dataset
		if err := json.Unmarshal([]byte(readText(t, lc.ReadMessage())), &data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if data.Meta.Total != len(data.Users) {
			t.Errorf("meta.total = %d, want %d", data.Meta.Total, len(data.Users))
		}
		for _, u := range data.Users {
			if u.Age < 18 || u.Age > 67 {
				t.Errorf("user %s age = %d, want [18, 67]", u.ID, u.Age)
			}
		}
	})

	t.Run("every resource readable", func(t *testing.T) {
		uris := []string{
			providers.URICurrentDirectory,
			providers.URIPackageInfo,
			providers.URISystemInfo,
			providers.URILorem,
			providers.URIServerConfig,
		}
		for i, uri := range uris {
			lc.SendJSON(request(10+i, protocol.MethodResourcesRead, map[string]string{"uri": uri}))
			if text := readText(t, lc.ReadMessage()); text == "" {
				t.Errorf("%s: empty text", uri)
			}
		}
	})

	t.Run("unknown uri", func(t *testing.T) {
		lc.SendJSON(request(3, protocol.MethodResourcesRead, map[string]string{"uri": "file://nope"}))
		msg := lc.ReadMessage()
		if code := errorCode(t, msg); code != protocol.CodeNotFound {
			t.Errorf("code = %d, want %d", code, protocol.CodeNotFound)
		}
		if msg.Error.Message != "Resource not found: file://nope" {
			t.Errorf("message = %q", msg.Error.Message)
		}
	})

	t.Run("missing uri", func(t *testing.T) {
		lc.SendJSON(request(4, protocol.MethodResourcesRead, map[string]any{}))
		msg := lc.ReadMessage()
		if code := errorCode(t, msg); code != protocol.CodeInvalidParams {
			t.Errorf("code = %d, want %d", code, protocol.CodeInvalidParams)
		}
		if msg.Error.Message != "Missing required parameter: uri" {
			t.Errorf("message = %q", msg.Error.Message)
		}
	})
}

func TestCompliance_Negotiation(t *testing.T) {
	lc := newClient(t)

	lc.SendJSON(request(1, protocol.MethodResourceStatus, nil))
	if code := errorCode(t, lc.ReadMessage()); code != protocol.CodeNotFound {
		t.Errorf("status before negotiate: code = %d, want %d", code, protocol.CodeNotFound)
	}

	lc.SendJSON(request(2, protocol.MethodNegotiate, map[string]any{
		"packages": []string{protocol.PackageResourceStatus, "mcp-unknown"},
	}))
	if msg := lc.ReadMessage(); msg.Error != nil || string(msg.Result) != "{}" {
		t.Fatalf("negotiate response = %s", msg.Raw)
	}

	lc.SendJSON(request(3, protocol.MethodResourceStatus, nil))
	msg := lc.ReadMessage()
	if msg.Error != nil {
		t.Fatalf("status after negotiate: %s", msg.Raw)
	}
	var snap status.Snapshot
	if err := json.Unmarshal(msg.Result, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	for name, v := range map[string]float64{"cpu": snap.CPU, "memory": snap.Memory, "disk": snap.Disk} {
		if v < 0 || v > 100 {
			t.Errorf("%s = %v, want [0, 100]", name, v)
		}
	}
}

func TestCompliance_VersionNotificationOrder(t *testing.T) {
	lc := newClient(t)

	lc.SendJSON(request(1, protocol.MethodVersion, nil))

	resp := lc.ReadMessage()
	if string(resp.ID) != "1" || resp.Error != nil {
		t.Fatalf("first line = %s, want mcp.version response", resp.Raw)
	}
	var version server.VersionResult
	if err := json.Unmarshal(resp.Result, &version); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if _, ok := version.Packages[protocol.PackageResourceStatus]; !ok {
		t.Errorf("packages = %v, want %s", version.Packages, protocol.PackageResourceStatus)
	}

	note := lc.ReadMessage()
	if note.Method != protocol.MethodClientInfo {
		t.Fatalf("second line = %s, want %s notification", note.Raw, protocol.MethodClientInfo)
	}
	if len(note.ID) != 0 {
		t.Errorf("notification carries id %s", note.ID)
	}
}

func TestCompliance_StatusPush(t *testing.T) {
	sim := status.NewSimulator(20*time.Millisecond, status.WithRand(rand.New(rand.NewSource(7))))
	lc := newClient(t, mcp.WithStatusSimulator(sim))

	// Nothing is pushed before negotiation.
	lc.ExpectNoLine(100 * time.Millisecond)

	lc.SendJSON(request(1, protocol.MethodNegotiate, map[string]any{
		"packages": []string{protocol.PackageResourceStatus},
	}))

	var sawResponse bool
	for pushes := 0; pushes < 2; {
		msg := lc.ReadMessage()
		switch {
		case string(msg.ID) == "1":
			sawResponse = true
		case msg.Method == protocol.MethodResourceStatusChanged:
			if !sawResponse {
				t.Fatal("status push before negotiate response")
			}
			pushes++
		default:
			t.Fatalf("unexpected line %s", msg.Raw)
		}
	}
}

func TestCompliance_Shutdown(t *testing.T) {
	srv := newServer(t)
	lc := testutil.NewLineClient(t, srv)

	lc.SendJSON(request(1, protocol.MethodPing, nil))
	lc.ReadMessage()

	if err := lc.Close(); err != nil {
		t.Errorf("serve after EOF = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mcp.ServeStdio(ctx, srv, mcp.WithIO(strings.NewReader(""), &strings.Builder{})); err != nil {
		t.Errorf("serve after cancel = %v, want nil", err)
	}
}
