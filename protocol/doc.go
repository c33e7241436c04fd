// Package protocol defines the MCP JSON-RPC 2.0 message types and error codes.
//
// This package provides the low-level protocol structures and the line codec
// used by mcp-resources. Most users should use the higher-level mcp package
// instead.
//
// # Request and Response Types
//
// The package defines the core JSON-RPC 2.0 message types:
//
//	type Request struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Method  string          `json:"method"`
//	    Params  json.RawMessage `json:"params,omitempty"`
//	}
//
//	type Response struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id"`
//	    Result  any             `json:"result,omitempty"`
//	    Error   *Error          `json:"error,omitempty"`
//	}
//
// # Line Codec
//
// Decode turns one input line into a Request, and an Encoder writes
// responses, errors and notifications as single newline-terminated lines:
//
//	req, perr := protocol.Decode(line)
//	if perr != nil {
//	    enc.EncodeError(nil, perr.Code, perr.Message)
//	    return
//	}
//	enc.EncodeResponse(req.ID, result)
//
// # Error Codes
//
// Standard JSON-RPC 2.0 error codes are defined as constants:
//
//	CodeParseError     = -32700  // Invalid JSON
//	CodeInvalidRequest = -32600  // Invalid Request object
//	CodeMethodNotFound = -32601  // Method not found
//	CodeInvalidParams  = -32602  // Invalid method parameters
//	CodeInternalError  = -32603  // Internal server error
//	CodeServerError    = -32000  // Handler or read failure
//	CodeNotFound       = -32001  // Unknown resource or capability not negotiated
//
// Helper functions create properly formatted errors:
//
//	err := protocol.NewMethodNotFound("unknown/method")
//	err := protocol.NewInvalidParams("Missing required parameter: uri")
//
// # MCP Method Constants
//
// Standard MCP method names are defined as constants:
//
//	MethodInitialize    = "initialize"
//	MethodResourcesList = "resources/list"
//	MethodResourcesRead = "resources/read"
//	MethodVersion       = "mcp.version"
//	MethodNegotiate     = "mcp.negotiate"
//	MethodPing          = "ping"
package protocol
