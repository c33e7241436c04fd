package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/felixgeelhaar/mcp-resources/protocol"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// DefaultNotificationBuffer is the capacity of the notification channel.
// Notifications that arrive while it is full are dropped.
const DefaultNotificationBuffer = 64

// StdioTransport exchanges line-delimited JSON-RPC with a server, either a
// subprocess or a pair of in-process streams.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.ReadCloser

	writeMu sync.Mutex

	mu       sync.Mutex
	respChan map[string]chan *Response
	closed   bool

	notifications chan *Notification
	readWG        sync.WaitGroup
}

// NewStdioTransport creates a transport that spawns a subprocess.
func NewStdioTransport(command string, args ...string) (*StdioTransport, error) {
	cmd := exec.Command(command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	t := newStdioTransport(stdin, stdout)
	t.cmd = cmd
	t.stderr = stderr
	return t, nil
}

// NewStreamTransport creates a transport over existing streams. w receives
// requests and is closed by Close; r yields the server's output lines.
func NewStreamTransport(r io.Reader, w io.WriteCloser) *StdioTransport {
	return newStdioTransport(w, r)
}

func newStdioTransport(stdin io.WriteCloser, stdout io.Reader) *StdioTransport {
	t := &StdioTransport{
		stdin:         stdin,
		stdout:        stdout,
		respChan:      make(map[string]chan *Response),
		notifications: make(chan *Notification, DefaultNotificationBuffer),
	}

	t.readWG.Add(1)
	go t.readMessages()

	return t
}

// Notifications returns the channel of server notifications. It is closed
// when the server's output ends.
func (t *StdioTransport) Notifications() <-chan *Notification {
	return t.notifications
}

// Send sends a request and waits for a response.
func (t *StdioTransport) Send(ctx context.Context, req *protocol.Request) (*Response, error) {
	key := string(req.ID)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	respCh := make(chan *Response, 1)
	t.respChan[key] = respCh
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.respChan, key)
		t.mu.Unlock()
	}()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	t.writeMu.Lock()
	_, err = t.stdin.Write(append(data, '\n'))
	t.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClosed
		}
		return resp, nil
	}
}

// Close closes stdin and, for a subprocess, waits for it to exit.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	// EOF on stdin is the server's signal to stop.
	_ = t.stdin.Close()

	t.readWG.Wait()

	if t.cmd == nil {
		return nil
	}
	return t.cmd.Wait()
}

func (t *StdioTransport) readMessages() {
	defer t.readWG.Done()
	defer close(t.notifications)
	defer t.failPending()

	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		var msg struct {
			Response
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue // Skip malformed lines
		}

		if msg.Method != "" {
			select {
			case t.notifications <- &Notification{Method: msg.Method, Params: msg.Params}:
			default:
			}
			continue
		}

		resp := msg.Response
		t.mu.Lock()
		if ch, ok := t.respChan[string(resp.ID)]; ok {
			ch <- &resp
		}
		t.mu.Unlock()
	}
}

// failPending unblocks callers still waiting when the output ends.
func (t *StdioTransport) failPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, ch := range t.respChan {
		close(ch)
		delete(t.respChan, key)
	}
}

// Stderr returns the stderr reader of a subprocess, or nil for streams.
func (t *StdioTransport) Stderr() io.Reader {
	if t.stderr == nil {
		return nil
	}
	return t.stderr
}
