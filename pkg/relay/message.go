// Package relay implements JSON-RPC calls made through a privileged relay.
//
// The unprivileged side (Client) never touches the network. It posts typed
// Requests onto a Channel and correlates Responses by request id. The
// privileged side (Worker) performs the HTTP round trip through a Transport.
package relay

import (
	"encoding/json"
)

const jsonRPCVersion = "2.0"

// Payload is a JSON-RPC 2.0 request body.
type Payload struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Request asks the relay to perform Payload.
type Request struct {
	RequestID uint64
	Payload   Payload
}

// Envelope is a JSON-RPC 2.0 response body.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Response is the relay's answer to the Request with the same RequestID.
// Success is false when the relay could not complete the round trip, in
// which case Error holds the transport's message and Data is nil.
type Response struct {
	RequestID uint64
	Success   bool
	Data      *Envelope
	Error     string
}
