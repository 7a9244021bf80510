// Package query describes record queries: which record type to read, which
// records to keep, and how to order them.
//
// A Query is a plain value that can be sent to a remote store as is.
// The same package evaluates predicates and sort orders locally, which is how
// the fake store answers queries and how the sharednotes executor enforces the
// requested order on whatever the store delivered.
//
//	q := query.New("Folder").
//		Where(query.All()).
//		OrderBy(query.Asc("name"))
package query

import (
	"fmt"
	"strings"

	"github.com/sharednotes/sharednotes.go/pkg/models"
)

// Query selects records of one type within one zone.
type Query struct {
	RecordType string           `cbor:"recordType"`
	Zone       models.ZoneID    `cbor:"zone"`
	Predicate  Predicate        `cbor:"predicate"`
	Sort       []SortDescriptor `cbor:"sort,omitempty"`

	// ResultsLimit caps the number of records in one page.
	// Zero lets the store pick its default page size.
	ResultsLimit int `cbor:"limit,omitempty"`

	// Cursor continues a previous query from where its page ended.
	Cursor *Cursor `cbor:"cursor,omitempty"`
}

// Cursor marks the position after the last record of a page.
// Clients treat it as opaque and hand it back unchanged.
type Cursor struct {
	Offset int `cbor:"offset"`
}

// New returns a query matching every record of recordType in the default zone.
func New(recordType string) *Query {
	return &Query{
		RecordType: recordType,
		Zone:       models.DefaultZoneID,
		Predicate:  All(),
	}
}

func (q *Query) Where(p Predicate) *Query {
	q.Predicate = p
	return q
}

// OrderBy appends sort keys. Earlier keys take precedence.
func (q *Query) OrderBy(keys ...SortDescriptor) *Query {
	q.Sort = append(q.Sort, keys...)
	return q
}

func (q *Query) InZone(zone models.ZoneID) *Query {
	q.Zone = zone
	return q
}

func (q *Query) Limit(n int) *Query {
	q.ResultsLimit = n
	return q
}

func (q *Query) After(c *Cursor) *Query {
	q.Cursor = c
	return q
}

// Clone returns a copy of q that can be modified without affecting q.
func (q *Query) Clone() *Query {
	c := *q
	c.Sort = append([]SortDescriptor(nil), q.Sort...)
	if q.Cursor != nil {
		cur := *q.Cursor
		c.Cursor = &cur
	}
	return &c
}

// String renders the query in a SQL-like form for logs and errors.
func (q *Query) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "SELECT * FROM %s", q.RecordType)
	if !q.Zone.IsZero() {
		fmt.Fprintf(&b, " IN %s", q.Zone)
	}
	fmt.Fprintf(&b, " WHERE %s", q.Predicate)

	if len(q.Sort) > 0 {
		keys := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			keys = append(keys, s.String())
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(keys, ", "))
	}

	if q.ResultsLimit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.ResultsLimit)
	}
	if q.Cursor != nil {
		fmt.Fprintf(&b, " START %d", q.Cursor.Offset)
	}

	return b.String()
}

// SortDescriptor orders records by one field.
type SortDescriptor struct {
	Key       string `cbor:"key"`
	Ascending bool   `cbor:"ascending"`
}

func Asc(key string) SortDescriptor {
	return SortDescriptor{Key: key, Ascending: true}
}

func Desc(key string) SortDescriptor {
	return SortDescriptor{Key: key, Ascending: false}
}

func (s SortDescriptor) String() string {
	if s.Ascending {
		return s.Key + " ASC"
	}
	return s.Key + " DESC"
}
