package models

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofrs/uuid"
)

// RecordID is the stable identity of a record: a record name unique within a zone.
//
// On the wire it is encoded as CBOR tag 8 wrapping [name, zone].
type RecordID struct {
	Name string
	Zone ZoneID
}

func NewRecordID(name string, zone ZoneID) RecordID {
	return RecordID{Name: name, Zone: zone}
}

// GenerateRecordID returns a RecordID with a random UUID v4 record name.
func GenerateRecordID(zone ZoneID) RecordID {
	return RecordID{Name: uuid.Must(uuid.NewV4()).String(), Zone: zone}
}

// ParseRecordID parses the "zone:owner/name" form produced by RecordID.String.
func ParseRecordID(s string) (RecordID, error) {
	zone, name, ok := strings.Cut(s, "/")
	if !ok || name == "" {
		return RecordID{}, fmt.Errorf("invalid record id %q: expected format is 'zone:owner/name'", s)
	}
	z, err := ParseZoneID(zone)
	if err != nil {
		return RecordID{}, err
	}
	return RecordID{Name: name, Zone: z}, nil
}

func (r RecordID) String() string {
	return fmt.Sprintf("%s/%s", r.Zone, r.Name)
}

func (r RecordID) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{
		Number:  TagRecordID,
		Content: []any{r.Name, r.Zone},
	})
}

func (r *RecordID) UnmarshalCBOR(data []byte) error {
	var tag cbor.RawTag
	if err := getCborDecoder().Unmarshal(data, &tag); err != nil {
		return err
	}

	if tag.Number != TagRecordID {
		return fmt.Errorf("unexpected tag number for RecordID: got %d, want %d", tag.Number, TagRecordID)
	}

	var content struct {
		_    struct{} `cbor:",toarray"`
		Name string
		Zone ZoneID
	}
	if err := getCborDecoder().Unmarshal(tag.Content, &content); err != nil {
		return fmt.Errorf("failed to decode RecordID content: %w", err)
	}

	r.Name = content.Name
	r.Zone = content.Zone

	return nil
}
