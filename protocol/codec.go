package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Decode parses one line of input into a Request.
//
// Text that is not valid JSON yields a parse error. Valid JSON that cannot be
// a request object (an array, a scalar, a non-string method, an object id)
// yields an invalid request error. No other validation happens here.
func Decode(line []byte) (*Request, *Error) {
	line = bytes.TrimSpace(line)
	if !json.Valid(line) {
		return nil, NewParseError("Parse error")
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, NewInvalidRequest("Invalid Request")
	}
	if !validID(req.ID) {
		return nil, NewInvalidRequest("Invalid Request: 'id' must be a string, number or null")
	}
	return &req, nil
}

func validID(id json.RawMessage) bool {
	if len(id) == 0 {
		return true
	}
	switch id[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	default:
		return false
	}
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithErrorHandler sets a hook called when a message cannot be serialized or
// written. The failure is never returned to the caller.
func WithErrorHandler(fn func(err error)) EncoderOption {
	return func(e *Encoder) {
		e.onError = fn
	}
}

// Encoder writes newline-delimited JSON-RPC messages.
// Each message is marshaled first and written with a single Write call, so
// concurrent callers never interleave partial lines.
type Encoder struct {
	mu      sync.Mutex
	w       io.Writer
	onError func(err error)
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		w:       w,
		onError: func(error) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WriteResponse writes a prepared response.
func (e *Encoder) WriteResponse(resp *Response) {
	e.writeLine(resp)
}

// EncodeResponse writes a successful response.
func (e *Encoder) EncodeResponse(id json.RawMessage, result any) {
	e.writeLine(NewResponse(id, result))
}

// EncodeError writes an error response.
func (e *Encoder) EncodeError(id json.RawMessage, code int, message string) {
	e.writeLine(NewErrorResponse(id, &Error{Code: code, Message: message}))
}

// EncodeNotification writes a notification.
func (e *Encoder) EncodeNotification(method string, params any) {
	e.writeLine(NewNotification(method, params))
}

func (e *Encoder) writeLine(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		e.onError(fmt.Errorf("encoding message: %w", err))
		return
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(data); err != nil {
		e.onError(fmt.Errorf("writing message: %w", err))
	}
}
