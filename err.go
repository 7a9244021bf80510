package sharednotes

import (
	"errors"

	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/models"
)

// IsUnknownItem reports whether err says the queried record type or record does not exist yet.
func IsUnknownItem(err error) bool {
	var rpcErr *connection.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == constants.CodeUnknownItem
}

// ServerRecordChanged returns the record the store holds when err is an
// optimistic-concurrency conflict that carries it.
func ServerRecordChanged(err error) (*models.Record, bool) {
	var rpcErr *connection.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != constants.CodeServerRecordChanged {
		return nil, false
	}
	if rpcErr.ServerRecord == nil {
		return nil, false
	}
	return rpcErr.ServerRecord, true
}
