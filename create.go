package sharednotes

import (
	"context"
)

// CreateIfAbsent saves entity as a new record and returns the stored entity.
//
// When the store already holds a record with the same identity, the save
// fails with a server-record-changed conflict; CreateIfAbsent then returns the
// store's copy instead of an error. Whoever saved first wins. The store's copy
// is converted but not otherwise checked.
//
// Every other error is returned as is, without retrying.
func CreateIfAbsent[R RecordWrapper](ctx context.Context, store Store, kind RecordKind[R], entity R) (R, error) {
	saved, err := store.Save(ctx, entity.Record())
	if err != nil {
		if serverRecord, ok := ServerRecordChanged(err); ok {
			return kind.FromRecord(serverRecord)
		}
		var zero R
		return zero, err
	}

	return kind.FromRecord(saved)
}
