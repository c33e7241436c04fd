package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-resources/protocol"
	"github.com/felixgeelhaar/mcp-resources/status"
	"github.com/felixgeelhaar/mcp-resources/transport"
	"github.com/felixgeelhaar/mcp-resources/watch"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	srv := NewServer(ServerInfo{
		Name:         "test-server",
		Version:      "1.0.0",
		Capabilities: Capabilities{Resources: true, Subscribe: true},
	})
	b := srv.Resource("generated://greeting").
		Name("Greeting").
		Description("A greeting").
		MimeType("text/plain").
		Handler(func(ctx context.Context) (string, error) {
			return "hello", nil
		})
	if err := b.Err(); err != nil {
		t.Fatalf("register: %v", err)
	}
	return srv
}

func outputLines(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("invalid output line %q: %v", line, err)
		}
		lines = append(lines, msg)
	}
	return lines
}

func TestNewServer(t *testing.T) {
	srv := NewServer(ServerInfo{
		Name:    "test-server",
		Version: "1.0.0",
	})

	if srv == nil {
		t.Fatal("expected server to be created")
	}

	info := srv.Info()
	if info.Name != "test-server" {
		t.Errorf("Name = %q, want %q", info.Name, "test-server")
	}
}

func TestServeStdio_Session(t *testing.T) {
	srv := newTestServer(t)

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"c","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"generated://greeting"}}`,
	}, "\n") + "\n")
	out := &bytes.Buffer{}

	if err := ServeStdio(context.Background(), srv, WithIO(in, out)); err != nil {
		t.Fatalf("ServeStdio() = %v, want nil on EOF", err)
	}

	lines := outputLines(t, out)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out.String())
	}
	for i, want := range []float64{1, 2, 3} {
		if lines[i]["id"] != want {
			t.Errorf("line %d id = %v, want %v", i, lines[i]["id"], want)
		}
	}

	result := lines[0]["result"].(map[string]any)
	if result["protocolVersion"] != protocol.MCPVersion {
		t.Errorf("protocolVersion = %v, want %s", result["protocolVersion"], protocol.MCPVersion)
	}

	contents := lines[2]["result"].(map[string]any)["contents"].([]any)
	text := contents[0].(map[string]any)["text"]
	if text != "hello" {
		t.Errorf("text = %v, want hello", text)
	}
}

func TestServeStdio_Middleware(t *testing.T) {
	srv := newTestServer(t)

	var methods []string
	record := func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			methods = append(methods, req.Method)
			return next(ctx, req)
		}
	}

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	out := &bytes.Buffer{}
	if err := ServeStdio(context.Background(), srv, WithIO(in, out), WithMiddleware(record)); err != nil {
		t.Fatalf("ServeStdio() = %v", err)
	}

	if len(methods) != 1 || methods[0] != "ping" {
		t.Errorf("middleware saw %v, want [ping]", methods)
	}
}

func TestServeStdio_VersionNotification(t *testing.T) {
	srv := newTestServer(t)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":7,"method":"mcp.version"}` + "\n")
	out := &bytes.Buffer{}
	if err := ServeStdio(context.Background(), srv, WithIO(in, out)); err != nil {
		t.Fatalf("ServeStdio() = %v", err)
	}

	lines := outputLines(t, out)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}
	if lines[0]["id"] != float64(7) {
		t.Errorf("first line id = %v, want 7", lines[0]["id"])
	}
	if lines[1]["method"] != protocol.MethodClientInfo {
		t.Errorf("second line method = %v, want %s", lines[1]["method"], protocol.MethodClientInfo)
	}
}

func TestServeStdio_Cancel(t *testing.T) {
	srv := newTestServer(t)

	inR, inW := io.Pipe()
	defer inW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeStdio(ctx, srv, WithIO(inR, &bytes.Buffer{}))
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeStdio() = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeStdio did not return after cancel")
	}
}

func TestServeStdio_StatusPush(t *testing.T) {
	srv := newTestServer(t)
	sim := status.NewSimulator(10*time.Millisecond, status.WithRand(rand.New(rand.NewSource(1))))

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ServeStdio(ctx, srv, WithIO(inR, outW), WithStatusSimulator(sim))
		outW.Close()
	}()

	lines := make(chan map[string]any, 16)
	go func() {
		dec := json.NewDecoder(outR)
		for {
			var msg map[string]any
			if err := dec.Decode(&msg); err != nil {
				close(lines)
				return
			}
			lines <- msg
		}
	}()

	write := func(s string) {
		if _, err := inW.Write([]byte(s + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write(`{"jsonrpc":"2.0","id":1,"method":"mcp.negotiate","params":{"packages":["mcp-resource-status"]}}`)

	deadline := time.After(2 * time.Second)
	var gotResponse, gotPush bool
	for !gotPush {
		select {
		case msg, ok := <-lines:
			if !ok {
				t.Fatal("output closed before status push")
			}
			if msg["id"] == float64(1) {
				gotResponse = true
			}
			if msg["method"] == protocol.MethodResourceStatusChanged {
				if !gotResponse {
					t.Error("status push arrived before negotiate response")
				}
				params := msg["params"].(map[string]any)
				if _, ok := params["cpu"]; !ok {
					t.Errorf("push params = %v, want cpu field", params)
				}
				gotPush = true
			}
		case <-deadline:
			t.Fatal("no status push received")
		}
	}
	inW.Close()
}

func TestServeStdio_Events(t *testing.T) {
	srv := newTestServer(t)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	events := make(chan Event, 1)
	events <- func(ctx context.Context, sender NotificationSender) {
		_ = sender.SendNotification("custom/event", map[string]string{"k": "v"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ServeStdio(ctx, srv, WithIO(inR, outW), WithEvents(events))
		outW.Close()
	}()
	defer inW.Close()

	var msg map[string]any
	if err := json.NewDecoder(outR).Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["method"] != "custom/event" {
		t.Errorf("method = %v, want custom/event", msg["method"])
	}
}

func TestServeStdio_Watcher(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(file, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(t)
	srv.Resource("file://data").
		Name("Data").
		MimeType("text/plain").
		Handler(func(ctx context.Context) (string, error) {
			b, err := os.ReadFile(file)
			return string(b), err
		})

	w := watch.New([]watch.Target{{URI: "file://data", Path: file}}, watch.WithDebounce(20*time.Millisecond))

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ServeStdio(ctx, srv, WithIO(inR, outW), WithWatcher(w))
		outW.Close()
	}()
	defer inW.Close()

	dec := json.NewDecoder(outR)
	if _, err := inW.Write([]byte(`{"jsonrpc":"2.0","id":1,"method":"resources/subscribe","params":{"uri":"file://data"}}` + "\n")); err != nil {
		t.Fatal(err)
	}
	var resp map[string]any
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != nil {
		t.Fatalf("subscribe failed: %v", resp["error"])
	}

	if err := os.WriteFile(file, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := make(chan map[string]any, 1)
	go func() {
		var msg map[string]any
		if dec.Decode(&msg) == nil {
			got <- msg
		}
	}()

	select {
	case msg := <-got:
		if msg["method"] != protocol.MethodResourceUpdated {
			t.Errorf("method = %v, want %s", msg["method"], protocol.MethodResourceUpdated)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no resource update notification")
	}
}

func TestNewHandler_Bridge(t *testing.T) {
	srv := newTestServer(t)
	h := NewHandler(srv)

	rec := &recorder{}
	ctx := transport.ContextWithNotificationSender(context.Background(), rec)
	req := &protocol.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: protocol.MethodVersion}

	resp, err := h.HandleRequest(ctx, req)
	if err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if len(rec.methods) != 1 || rec.methods[0] != protocol.MethodClientInfo {
		t.Errorf("notifications = %v, want [%s]", rec.methods, protocol.MethodClientInfo)
	}
}

type recorder struct {
	methods []string
}

func (r *recorder) SendNotification(method string, _ any) error {
	r.methods = append(r.methods, method)
	return nil
}
