package sharednotes

import (
	"context"

	"github.com/sharednotes/sharednotes.go/pkg/models"
	"github.com/sharednotes/sharednotes.go/pkg/query"
)

// Query runs q for records of kind and returns convert applied to each of them,
// ordered by q's sort keys.
//
// q's record type is replaced by kind's, and a nil q matches every record of
// kind in the default zone. Only the first page is read: the continuation
// cursor is dropped, so at most one store page of results is returned. Use
// Store.Query directly to page through everything.
//
// A record type the store has never seen yields an empty slice and no error.
// Every other store error is returned as is.
func Query[R RecordWrapper, T any](
	ctx context.Context,
	store Store,
	kind RecordKind[R],
	q *query.Query,
	convert func(R) T,
) ([]T, error) {
	if q == nil {
		q = query.New(kind.RecordType())
	}
	scoped := q.Clone()
	scoped.RecordType = kind.RecordType()

	var records []*models.Record
	if _, err := store.Query(ctx, scoped, func(rec *models.Record) {
		records = append(records, rec)
	}); err != nil {
		if IsUnknownItem(err) {
			return []T{}, nil
		}
		return nil, err
	}

	query.SortRecords(records, scoped.Sort)

	results := make([]T, 0, len(records))
	for _, rec := range records {
		entity, err := kind.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		results = append(results, convert(entity))
	}

	return results, nil
}
