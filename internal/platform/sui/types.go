// Package sui is a JSON-RPC client for a Sui fullnode, covering the read
// surface this system needs: cursor-paged event queries for the marketplace
// package and object fetches used to hydrate projections. It also builds
// unsigned Move-call intents that are handed to an external signer.
package sui

import (
	"encoding/json"
	"fmt"
)

// EventID is the ledger's totally ordered position of one event: the
// transaction digest plus the event's sequence within that transaction. It
// doubles as the paging cursor.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// String renders the id in "digest:seq" form for logs and cursor storage.
func (id EventID) String() string {
	return id.TxDigest + ":" + id.EventSeq
}

// ParseEventID parses the "digest:seq" form produced by String.
func ParseEventID(s string) (EventID, error) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return EventID{TxDigest: s[:i], EventSeq: s[i+1:]}, nil
		}
	}
	return EventID{}, fmt.Errorf("sui: malformed event id %q", s)
}

// RawEvent is one event as returned by suix_queryEvents, with the payload
// left undecoded. Decoding into the domain event union happens in decode.go
// so that schema drift is contained in one place.
type RawEvent struct {
	ID          EventID         `json:"id"`
	PackageID   string          `json:"packageId"`
	Module      string          `json:"transactionModule"`
	Sender      string          `json:"sender"`
	Type        string          `json:"type"`
	ParsedJSON  json.RawMessage `json:"parsedJson"`
	TimestampMs string          `json:"timestampMs"`
}

// EventPage is one page of ascending events plus the cursor to resume from.
type EventPage struct {
	Data        []RawEvent `json:"data"`
	NextCursor  *EventID   `json:"nextCursor"`
	HasNextPage bool       `json:"hasNextPage"`
}

// ObjectData is the content of a fetched on-chain object. Fields holds the
// Move struct's fields as raw JSON for the per-type parsers.
type ObjectData struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
