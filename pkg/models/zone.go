package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultZoneName is the name of the zone every store exposes without being created.
	DefaultZoneName = "_defaultZone"
	// DefaultOwnerName stands for the current user when used as a zone owner.
	DefaultOwnerName = "__defaultOwner__"
)

// ZoneID identifies a logical partition of a record store.
//
// All records handled by a sharednotes Manager live in a single zone,
// resolved once when the Manager is constructed.
type ZoneID struct {
	Name  string `cbor:"name"`
	Owner string `cbor:"owner"`
}

// DefaultZoneID is the zone records go to when nothing else is requested.
var DefaultZoneID = ZoneID{Name: DefaultZoneName, Owner: DefaultOwnerName}

func NewZoneID(name, owner string) ZoneID {
	return ZoneID{Name: name, Owner: owner}
}

func (z ZoneID) IsZero() bool {
	return z.Name == "" && z.Owner == ""
}

func (z ZoneID) String() string {
	return fmt.Sprintf("%s:%s", z.Name, z.Owner)
}

// ParseZoneID parses the "name:owner" form produced by ZoneID.String.
func ParseZoneID(s string) (ZoneID, error) {
	name, owner, ok := strings.Cut(s, ":")
	if !ok || name == "" || owner == "" {
		return ZoneID{}, fmt.Errorf("invalid zone id %q: expected format is 'name:owner'", s)
	}
	return ZoneID{Name: name, Owner: owner}, nil
}
