package testutil_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/mcp-resources"
	"github.com/felixgeelhaar/mcp-resources/protocol"
	"github.com/felixgeelhaar/mcp-resources/testutil"
)

func newServer(t *testing.T) *mcp.Server {
	t.Helper()

	srv := mcp.NewServer(mcp.ServerInfo{
		Name:         "test-server",
		Version:      "1.0.0",
		Capabilities: mcp.Capabilities{Resources: true, Subscribe: true},
	})

	srv.Resource("generated://greeting").
		Name("Greeting").
		Description("A greeting").
		MimeType("text/plain").
		Handler(func(ctx context.Context) (string, error) {
			return "hello", nil
		})

	srv.Resource("generated://broken").
		Name("Broken").
		Description("Always fails").
		MimeType("text/plain").
		Handler(func(ctx context.Context) (string, error) {
			return "", errors.New("intentional error")
		})

	return srv
}

func TestTestClient_Resources(t *testing.T) {
	client := testutil.NewTestClient(t, newServer(t))

	t.Run("Initialize", func(t *testing.T) {
		result, err := client.Initialize()
		if err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}

		serverInfo, ok := result["serverInfo"].(map[string]any)
		if !ok {
			t.Fatal("expected serverInfo in result")
		}
		if serverInfo["name"] != "test-server" {
			t.Errorf("expected name 'test-server', got %v", serverInfo["name"])
		}
	})

	t.Run("ListResources", func(t *testing.T) {
		resources, err := client.ListResources()
		if err != nil {
			t.Fatalf("ListResources failed: %v", err)
		}
		if len(resources) != 2 {
			t.Fatalf("expected 2 resources, got %d", len(resources))
		}
		if resources[0].URI != "generated://greeting" {
			t.Errorf("first resource = %q, want generated://greeting", resources[0].URI)
		}
	})

	t.Run("ReadResource", func(t *testing.T) {
		text, err := client.ReadResource("generated://greeting")
		if err != nil {
			t.Fatalf("ReadResource failed: %v", err)
		}
		if text != "hello" {
			t.Errorf("text = %q, want hello", text)
		}
	})

	t.Run("ReadResource failure", func(t *testing.T) {
		_, err := client.ReadResource("generated://broken")
		testutil.AssertErrorCode(t, err, protocol.CodeServerError)
	})

	t.Run("ReadResource unknown", func(t *testing.T) {
		_, err := client.ReadResource("generated://missing")
		testutil.AssertErrorCode(t, err, protocol.CodeNotFound)
	})

	t.Run("AssertResourceExists", func(t *testing.T) {
		client.AssertResourceExists("generated://greeting")
	})

	t.Run("Ping", func(t *testing.T) {
		if err := client.Ping(); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func TestTestClient_Negotiation(t *testing.T) {
	client := testutil.NewTestClient(t, newServer(t))

	_, err := client.Status()
	testutil.AssertErrorCode(t, err, protocol.CodeNotFound)

	version, err := client.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version.Packages[protocol.PackageResourceStatus] == "" {
		t.Errorf("packages = %v, want %s", version.Packages, protocol.PackageResourceStatus)
	}

	notes := client.Notifications()
	if len(notes) != 1 || notes[0].Method != protocol.MethodClientInfo {
		t.Fatalf("notifications = %v, want one %s", notes, protocol.MethodClientInfo)
	}

	if err := client.Negotiate(protocol.PackageResourceStatus); err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}

	snap, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if snap.UpdatedAt.IsZero() {
		t.Error("expected updatedAt to be set")
	}
}

func TestTestClient_WithHandler(t *testing.T) {
	var seen []string
	record := func(next mcp.HandlerFunc) mcp.HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			seen = append(seen, req.Method)
			return next(ctx, req)
		}
	}

	client := testutil.NewTestClient(t, newServer(t), record)
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	want := []string{protocol.MethodInitialize, protocol.MethodPing}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("middleware saw %v, want %v", seen, want)
	}
}

func TestLineClient(t *testing.T) {
	lc := testutil.NewLineClient(t, newServer(t))

	lc.Send(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	msg := lc.ReadMessage()
	if string(msg.ID) != "1" {
		t.Errorf("id = %s, want 1", msg.ID)
	}
	if string(msg.Result) != "{}" {
		t.Errorf("result = %s, want {}", msg.Result)
	}

	lc.Send(`not json`)
	msg = lc.ReadMessage()
	if msg.Error == nil || msg.Error.Code != protocol.CodeParseError {
		t.Fatalf("expected parse error, got %s", msg.Raw)
	}
	if string(msg.ID) != "null" {
		t.Errorf("id = %s, want null", msg.ID)
	}

	if err := lc.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
