package connection

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/sharednotes/sharednotes.go/pkg/models"
	"github.com/sharednotes/sharednotes.go/pkg/query"
)

// RPCError is the error reported by a record store.
//
// Code is one of the constants.Code* values. For constants.CodeServerRecordChanged
// the store also returns the record it currently holds in ServerRecord.
type RPCError struct {
	Code         int            `json:"code" cbor:"code"`
	Message      string         `json:"message,omitempty" cbor:"message,omitempty"`
	Description  string         `json:"description,omitempty" cbor:"description,omitempty"`
	ServerRecord *models.Record `json:"-" cbor:"serverRecord,omitempty"`
}

func (r *RPCError) Error() string {
	if r.Description != "" {
		return r.Description
	}
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("record store error %d", r.Code)
}

// Is matches another *RPCError with the same code.
// A target with code 0 matches any RPCError.
func (r *RPCError) Is(target error) bool {
	t, ok := target.(*RPCError)
	if !ok {
		return false
	}
	if r == nil || t == nil {
		return r == t
	}
	return t.Code == 0 || t.Code == r.Code
}

// RPCRequest is one call to the record store.
type RPCRequest struct {
	ID     any    `cbor:"id"`
	Method string `cbor:"method,omitempty"`
	Params []any  `cbor:"params,omitempty"`
}

// RPCResponse is the final answer to an RPCRequest.
//
// Streaming connections send any number of frames carrying only Item before
// the final response. Item frames never carry Result or Error.
type RPCResponse[T any] struct {
	// ID is the ID of the request this response corresponds to.
	ID     any             `cbor:"id"`
	Error  *RPCError       `cbor:"error,omitempty"`
	Result *T              `cbor:"result,omitempty"`
	Item   cbor.RawMessage `cbor:"item,omitempty"`
}

// IsItem reports whether the frame is a stream item rather than a final response.
func (r *RPCResponse[T]) IsItem() bool {
	return len(r.Item) > 0
}

// QueryResult is the final result of a query call.
// Records is empty when the records were streamed as items.
type QueryResult struct {
	Records []*models.Record `cbor:"records,omitempty"`
	Cursor  *query.Cursor    `cbor:"cursor,omitempty"`
}

type RPCFunction string

var (
	Zone  RPCFunction = "zone"
	Save  RPCFunction = "save"
	Query RPCFunction = "query"
)
