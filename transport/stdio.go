package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/protocol"
)

// DefaultMaxLineSize bounds a single input line.
const DefaultMaxLineSize = 1024 * 1024

// Stdio implements the transport over stdin/stdout.
//
// One line is fully processed, and its response written, before the next
// line is handled. Notifications a handler emits are held until its response
// line has been written.
type Stdio struct {
	in       io.Reader
	out      io.Writer
	logger   logging.Logger
	events   <-chan Event
	shutdown *ShutdownManager
	maxLine  int

	enc *protocol.Encoder
}

// StdioOption configures a Stdio transport.
type StdioOption func(*Stdio)

// WithStdin sets a custom stdin reader.
func WithStdin(r io.Reader) StdioOption {
	return func(s *Stdio) {
		s.in = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.out = w
	}
}

// WithLogger sets the diagnostic logger. Nothing is ever logged to stdout.
func WithLogger(l logging.Logger) StdioOption {
	return func(s *Stdio) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEvents sets a channel of events run on the loop between messages.
func WithEvents(events <-chan Event) StdioOption {
	return func(s *Stdio) {
		s.events = events
	}
}

// WithShutdownManager tracks each message as an in-flight request.
func WithShutdownManager(sm *ShutdownManager) StdioOption {
	return func(s *Stdio) {
		s.shutdown = sm
	}
}

// WithMaxLineSize overrides DefaultMaxLineSize.
func WithMaxLineSize(n int) StdioOption {
	return func(s *Stdio) {
		if n > 0 {
			s.maxLine = n
		}
	}
}

// NewStdio creates a new stdio transport.
func NewStdio(opts ...StdioOption) *Stdio {
	s := &Stdio{
		in:      os.Stdin,
		out:     os.Stdout,
		logger:  logging.Nop{},
		maxLine: DefaultMaxLineSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.enc = protocol.NewEncoder(s.out, protocol.WithErrorHandler(func(err error) {
		s.logger.Error("stdout write failed", logging.Err(err))
	}))

	return s
}

// Addr returns the transport address.
func (s *Stdio) Addr() string {
	return "stdio"
}

// Serve processes lines from stdin until EOF, ctx cancellation or a read
// error. EOF returns nil. A line longer than the size limit is discarded and
// answered with an Invalid Request error; serving continues.
func (s *Stdio) Serve(ctx context.Context, handler Handler) error {
	reader := bufio.NewReaderSize(s.in, min(64*1024, s.maxLine))

	lines := make(chan inputLine)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for {
			line, tooLong, err := readLine(reader, s.maxLine)
			if tooLong || len(line) > 0 {
				select {
				case lines <- inputLine{data: line, tooLong: tooLong}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	events := s.events
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ev(ctx, s)
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					s.logger.Error("stdin read failed", logging.Err(err))
					return fmt.Errorf("reading stdin: %w", err)
				default:
				}
				s.logger.Info("stdin closed")
				return nil
			}
			if line.tooLong {
				s.logger.Warn("input line too long", logging.F("limit", s.maxLine))
				s.enc.WriteResponse(protocol.NewErrorResponse(nil,
					protocol.NewInvalidRequest(fmt.Sprintf("Invalid Request: line exceeds %d bytes", s.maxLine))))
				continue
			}
			s.handleLine(ctx, handler, line.data)
		}
	}
}

type inputLine struct {
	data    []byte
	tooLong bool
}

// readLine reads up to and including the next newline. Once the content
// passes limit bytes the rest of the line is consumed and dropped.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		frag, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, frag...)
			n := len(line)
			if n > 0 && line[n-1] == '\n' {
				n--
			}
			if n > 0 && line[n-1] == '\r' {
				n--
			}
			if n > limit {
				line, tooLong = nil, true
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}

// SendNotification writes a notification line immediately.
func (s *Stdio) SendNotification(method string, params any) error {
	s.enc.EncodeNotification(method, params)
	return nil
}

func (s *Stdio) handleLine(ctx context.Context, handler Handler, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	req, perr := protocol.Decode(line)
	if perr != nil {
		s.logger.Warn("undecodable message",
			logging.F("code", perr.Code),
			logging.F("bytes", len(line)),
		)
		s.enc.WriteResponse(protocol.NewErrorResponse(nil, perr))
		return
	}

	if s.shutdown != nil {
		if !s.shutdown.TrackRequest() {
			if !req.IsNotification() {
				s.enc.WriteResponse(protocol.NewErrorResponse(req.ID,
					protocol.NewServerError("Server error: shutting down")))
			}
			return
		}
		defer s.shutdown.CompleteRequest()
	}

	queue := &notificationQueue{}
	ctx = ContextWithNotificationSender(ctx, queue)

	resp, err := handler.HandleRequest(ctx, req)

	// A message without an id gets no reply unless it was not a usable
	// message at all.
	if req.IsNotification() && req.Method != "" {
		if err != nil {
			s.logger.Warn("notification failed",
				logging.F("method", req.Method),
				logging.Err(err),
			)
		}
		queue.flush(s.enc)
		return
	}

	if err != nil {
		var mcpErr *protocol.Error
		if !errors.As(err, &mcpErr) {
			mcpErr = protocol.NewServerError("Server error: " + err.Error())
		}
		resp = protocol.NewErrorResponse(req.ID, mcpErr)
	}
	if resp == nil {
		resp = protocol.NewResponse(req.ID, nil)
	}

	s.enc.WriteResponse(resp)
	queue.flush(s.enc)
}

// notificationQueue holds notifications emitted while a message is handled.
type notificationQueue struct {
	mu      sync.Mutex
	pending []*protocol.Notification
}

func (q *notificationQueue) SendNotification(method string, params any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, protocol.NewNotification(method, params))
	return nil
}

func (q *notificationQueue) flush(enc *protocol.Encoder) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, n := range pending {
		enc.EncodeNotification(n.Method, n.Params)
	}
}
