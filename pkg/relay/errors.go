package relay

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	// ErrTimeout means no response arrived in time. The call may still have
	// been executed by the node.
	ErrTimeout = errors.New("rpc call timed out")

	// ErrClosed means the client was closed before the call completed.
	ErrClosed = errors.New("rpc client closed")
)

// TransportError is reported by the relay when it could not complete the
// round trip. Message is the transport's error, unmodified.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// ErrorData returns the raw data member, which for sendTransaction carries
// the preflight simulation result.
func (e *RPCError) ErrorData() json.RawMessage {
	return e.Data
}
