// Package fakestore provides an in-memory record store with the semantics
// sharednotes expects from a remote store, and an RPC server exposing it over
// HTTP and WebSocket.
//
// The store implements optimistic concurrency with change tags: saving a record
// whose ID already exists succeeds only when the saved copy carries the change
// tag the store holds, and otherwise fails with
// constants.CodeServerRecordChanged and the stored record attached. Querying a
// record type that was never saved fails with constants.CodeUnknownItem.
//
// Use the Store directly in unit tests, or wrap it in a Server to test the
// transports end to end.
package fakestore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/models"
	"github.com/sharednotes/sharednotes.go/pkg/query"
)

// ArrivalOrder controls the order in which Query hands records to its callback.
type ArrivalOrder int

const (
	// ArrivalSorted delivers records in the order the query asked for.
	ArrivalSorted ArrivalOrder = iota
	// ArrivalReversed delivers each page in the reverse of the requested order.
	ArrivalReversed
	// ArrivalInsertion ignores the requested order and delivers records in the order they were first saved.
	ArrivalInsertion
)

type Option func(s *Store)

// WithZone makes zone the store's only zone instead of models.DefaultZoneID.
func WithZone(zone models.ZoneID) Option {
	return func(s *Store) {
		s.zone = zone
	}
}

// WithPageSize sets the number of records returned per query page
// when a query has no results limit.
func WithPageSize(n int) Option {
	return func(s *Store) {
		s.pageSize = n
	}
}

func WithArrivalOrder(order ArrivalOrder) Option {
	return func(s *Store) {
		s.arrival = order
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type Store struct {
	mu       sync.Mutex
	zone     models.ZoneID
	records  map[models.RecordID]*models.Record
	inserted []models.RecordID
	types    map[string]struct{}
	injected map[connection.RPCFunction]error

	pageSize int
	arrival  ArrivalOrder
	now      func() time.Time
}

func New(opts ...Option) *Store {
	s := &Store{
		zone:     models.DefaultZoneID,
		records:  make(map[models.RecordID]*models.Record),
		types:    make(map[string]struct{}),
		injected: make(map[connection.RPCFunction]error),
		pageSize: constants.DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InjectError makes every call to method fail with err until ClearErrors is called.
func (s *Store) InjectError(method connection.RPCFunction, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected[method] = err
}

func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.injected)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Get returns a copy of the stored record with the given ID.
func (s *Store) Get(id models.RecordID) (*models.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (s *Store) DefaultZone(ctx context.Context) (models.ZoneID, error) {
	if err := ctx.Err(); err != nil {
		return models.ZoneID{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected[connection.Zone]; err != nil {
		return models.ZoneID{}, err
	}
	return s.zone, nil
}

// Save creates or updates rec and returns the stored copy.
func (s *Store) Save(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected[connection.Save]; err != nil {
		return nil, err
	}

	if rec == nil || rec.Type == "" || rec.ID.Name == "" {
		return nil, &connection.RPCError{
			Code:    constants.CodeInvalidArguments,
			Message: "record must have a type and a record name",
		}
	}
	if rec.ID.Zone != s.zone {
		return nil, &connection.RPCError{
			Code:    constants.CodeZoneNotFound,
			Message: fmt.Sprintf("zone %s does not exist", rec.ID.Zone),
		}
	}

	now := s.now()
	existing, ok := s.records[rec.ID]

	switch {
	case ok && existing.ChangeTag != rec.ChangeTag:
		return nil, &connection.RPCError{
			Code:         constants.CodeServerRecordChanged,
			Message:      fmt.Sprintf("record %s changed on server", rec.ID),
			ServerRecord: existing.Clone(),
		}
	case ok && existing.Type != rec.Type:
		return nil, &connection.RPCError{
			Code:    constants.CodeInvalidArguments,
			Message: fmt.Sprintf("record %s is a %s, not a %s", rec.ID, existing.Type, rec.Type),
		}
	case !ok && rec.ChangeTag != "":
		return nil, &connection.RPCError{
			Code:    constants.CodeUnknownItem,
			Message: fmt.Sprintf("record %s does not exist", rec.ID),
		}
	}

	stored := rec.Clone()
	stored.ChangeTag = newChangeTag()
	stored.ModifiedAt = now
	if ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
		s.inserted = append(s.inserted, rec.ID)
	}

	s.records[rec.ID] = stored
	s.types[rec.Type] = struct{}{}

	return stored.Clone(), nil
}

// Query calls fn for every record of the page selected by q and returns the
// cursor of the next page, or nil when q's page was the last.
//
// fn is called without the store lock held.
func (s *Store) Query(ctx context.Context, q *query.Query, fn func(*models.Record)) (*query.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, next, err := s.page(q)
	if err != nil {
		return nil, err
	}

	for _, rec := range page {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fn(rec)
	}

	return next, nil
}

func (s *Store) page(q *query.Query) ([]*models.Record, *query.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected[connection.Query]; err != nil {
		return nil, nil, err
	}

	if q == nil || q.RecordType == "" {
		return nil, nil, &connection.RPCError{
			Code:    constants.CodeInvalidArguments,
			Message: "query must name a record type",
		}
	}
	if q.Zone != s.zone {
		return nil, nil, &connection.RPCError{
			Code:    constants.CodeZoneNotFound,
			Message: fmt.Sprintf("zone %s does not exist", q.Zone),
		}
	}
	if _, ok := s.types[q.RecordType]; !ok {
		return nil, nil, &connection.RPCError{
			Code:    constants.CodeUnknownItem,
			Message: fmt.Sprintf("did not find record type: %s", q.RecordType),
		}
	}

	var matched []*models.Record
	for _, id := range s.inserted {
		rec, ok := s.records[id]
		if !ok || rec.Type != q.RecordType || !q.Predicate.Match(rec.Fields) {
			continue
		}
		matched = append(matched, rec.Clone())
	}

	if s.arrival != ArrivalInsertion {
		query.SortRecords(matched, q.Sort)
	}

	offset := 0
	if q.Cursor != nil {
		offset = min(max(q.Cursor.Offset, 0), len(matched))
	}
	limit := s.pageSize
	if q.ResultsLimit > 0 {
		limit = q.ResultsLimit
	}

	end := min(offset+limit, len(matched))
	page := matched[offset:end]

	var next *query.Cursor
	if end < len(matched) {
		next = &query.Cursor{Offset: end}
	}

	if s.arrival == ArrivalReversed {
		slices.Reverse(page)
	}

	return page, next, nil
}

func newChangeTag() string {
	return uuid.Must(uuid.NewV4()).String()
}
