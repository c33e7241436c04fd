package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/protocol"
)

// HandlerFunc handles one method. The returned value becomes the response
// result; a *protocol.Error is sent as is and any other error is reported as
// a server error.
type HandlerFunc func(ctx context.Context, id, params json.RawMessage) (any, error)

// emptyParams is substituted when a request carries no params.
var emptyParams = json.RawMessage("{}")

var keyReplacer = strings.NewReplacer(".", "_", "/", "_")

// HandlerKey derives the dispatch key for a method name by replacing the
// reserved separators '.' and '/' with '_'.
func HandlerKey(method string) string {
	return keyReplacer.Replace(method)
}

// Dispatcher maps method names to handlers. The table is filled once at
// startup and only read afterwards.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   logging.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Handle registers a handler for method. Registering two methods that map to
// the same key panics, since that is a programming error.
func (d *Dispatcher) Handle(method string, h HandlerFunc) {
	key := HandlerKey(method)
	if _, exists := d.handlers[key]; exists {
		panic(fmt.Sprintf("server: duplicate handler for %q", method))
	}
	d.handlers[key] = h
}

// Lookup returns the handler registered for method.
func (d *Dispatcher) Lookup(method string) (HandlerFunc, bool) {
	h, ok := d.handlers[HandlerKey(method)]
	return h, ok
}

// Methods returns the number of registered handlers.
func (d *Dispatcher) Methods() int {
	return len(d.handlers)
}

// HandleRequest dispatches a decoded request. Failures come back as
// *protocol.Error; the dispatcher never panics on handler failure.
func (d *Dispatcher) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if req.Method == "" {
		return nil, protocol.NewInvalidRequest("Invalid Request: 'method' is missing")
	}

	h, ok := d.Lookup(req.Method)
	if !ok {
		return nil, protocol.NewMethodNotFound(req.Method)
	}

	params := req.Params
	if !req.HasParams() {
		params = emptyParams
	}

	result, err := d.invoke(ctx, h, req.ID, params)
	if err != nil {
		var mcpErr *protocol.Error
		if errors.As(err, &mcpErr) {
			return nil, mcpErr
		}
		d.logger.Error("handler failed",
			logging.F("method", req.Method),
			logging.Err(err),
		)
		return nil, protocol.NewServerError("Server error: " + err.Error())
	}

	return protocol.NewResponse(req.ID, result), nil
}

func (d *Dispatcher) invoke(ctx context.Context, h HandlerFunc, id, params json.RawMessage) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h(ctx, id, params)
}
