package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-resources"
	"github.com/felixgeelhaar/mcp-resources/server"
)

// DefaultReadTimeout bounds ReadLine.
const DefaultReadTimeout = 2 * time.Second

// Message is a decoded output line. Exactly one of Result, Error or Method is
// set for well-formed output.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	Raw string `json:"-"`
}

// IsNotification reports whether the line is a server notification.
func (m *Message) IsNotification() bool {
	return m.Method != ""
}

// LineClient runs ServeStdio over pipes and exchanges raw lines with it.
type LineClient struct {
	t     testing.TB
	in    *io.PipeWriter
	lines chan string
	done  chan error
}

// NewLineClient starts ServeStdio for srv. The server stops when Close is
// called or the test ends.
func NewLineClient(t testing.TB, srv *server.Server, opts ...mcp.ServeOption) *LineClient {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	lc := &LineClient{
		t:     t,
		in:    inW,
		lines: make(chan string, 64),
		done:  make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	opts = append(opts, mcp.WithIO(inR, outW))
	go func() {
		err := mcp.ServeStdio(ctx, srv, opts...)
		outW.Close()
		lc.done <- err
	}()

	go func() {
		defer close(lc.lines)
		sc := bufio.NewScanner(outR)
		sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for sc.Scan() {
			lc.lines <- sc.Text()
		}
	}()

	t.Cleanup(func() {
		inW.Close()
		cancel()
	})

	return lc
}

// Send writes line followed by a newline.
func (lc *LineClient) Send(line string) {
	lc.t.Helper()
	if _, err := io.WriteString(lc.in, line+"\n"); err != nil {
		lc.t.Fatalf("write line: %v", err)
	}
}

// SendJSON marshals v and writes it as one line.
func (lc *LineClient) SendJSON(v any) {
	lc.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		lc.t.Fatalf("marshal line: %v", err)
	}
	lc.Send(string(data))
}

// ReadLine returns the next output line, failing the test after
// DefaultReadTimeout.
func (lc *LineClient) ReadLine() string {
	lc.t.Helper()
	line, err := lc.ReadLineTimeout(DefaultReadTimeout)
	if err != nil {
		lc.t.Fatalf("read line: %v", err)
	}
	return line
}

// ErrReadTimeout is returned when no line arrives in time.
var ErrReadTimeout = errors.New("timed out waiting for output line")

// ReadLineTimeout returns the next output line or ErrReadTimeout.
func (lc *LineClient) ReadLineTimeout(d time.Duration) (string, error) {
	select {
	case line, ok := <-lc.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-time.After(d):
		return "", ErrReadTimeout
	}
}

// ReadMessage reads and decodes the next output line.
func (lc *LineClient) ReadMessage() *Message {
	lc.t.Helper()
	line := lc.ReadLine()
	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		lc.t.Fatalf("decode line %q: %v", line, err)
	}
	msg.Raw = line
	return &msg
}

// ExpectNoLine fails the test if a line arrives within d.
func (lc *LineClient) ExpectNoLine(d time.Duration) {
	lc.t.Helper()
	line, err := lc.ReadLineTimeout(d)
	if err == nil {
		lc.t.Errorf("unexpected output line: %s", line)
	}
}

// Close ends the input stream and returns the ServeStdio result.
func (lc *LineClient) Close() error {
	lc.in.Close()
	select {
	case err := <-lc.done:
		return err
	case <-time.After(DefaultReadTimeout):
		return ErrReadTimeout
	}
}
