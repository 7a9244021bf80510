package models

import (
	"fmt"
	"maps"
	"time"
)

// Record is one row of the remote store: a record-type tag, a field map and a stable identity.
//
// Records are owned by the store. Clients build them to save, receive them from
// saves and queries, and drop them once converted into a domain entity.
type Record struct {
	ID     RecordID       `cbor:"id"`
	Type   string         `cbor:"type"`
	Fields map[string]any `cbor:"fields,omitempty"`

	// ChangeTag is the optimistic-concurrency token assigned by the store on every save.
	// A record saved without a ChangeTag is a create.
	ChangeTag  string    `cbor:"changeTag,omitempty"`
	CreatedAt  time.Time `cbor:"createdAt"`
	ModifiedAt time.Time `cbor:"modifiedAt"`
}

func NewRecord(recordType string, id RecordID) *Record {
	return &Record{
		ID:     id,
		Type:   recordType,
		Fields: map[string]any{},
	}
}

func (r *Record) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

func (r *Record) Set(key string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[key] = value
}

// String returns a string field. It reports false if the field is missing or not a string.
func (r *Record) String(key string) (string, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a copy of r whose field map can be modified independently.
// Field values themselves are shared.
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = maps.Clone(r.Fields)
	return &c
}

func (r *Record) GoString() string {
	return fmt.Sprintf("Record{Type: %q, ID: %s, ChangeTag: %q, Fields: %v}", r.Type, r.ID, r.ChangeTag, r.Fields)
}
