package sharednotes

import (
	"github.com/sharednotes/sharednotes.go/pkg/models"
)

// RecordWrapper is a domain entity backed by one store record.
type RecordWrapper interface {
	// Record returns the record to save for this entity.
	Record() *models.Record
}

// RecordKind converts store records of one record type into entities of type R.
//
// Adding an entity kind means adding a RecordKind; Query and CreateIfAbsent
// work with any of them.
type RecordKind[R RecordWrapper] interface {
	// RecordType is the record-type tag shared by every record of this kind.
	RecordType() string

	// FromRecord builds the entity for rec. A record of another type, or one
	// missing a required field, yields an error wrapping constants.ErrMalformedRecord.
	FromRecord(rec *models.Record) (R, error)
}
