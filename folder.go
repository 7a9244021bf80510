package sharednotes

import (
	"fmt"

	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/models"
)

const (
	// FolderRecordType is the record-type tag of folder records.
	FolderRecordType = "Folder"
	FolderNameField  = "name"

	// DefaultFolderRecordName is the reserved record name of the default folder in every zone.
	DefaultFolderRecordName = "default-folder"
	DefaultFolderName       = "Notes"
)

// Folder is a named container of notes.
type Folder interface {
	RecordWrapper
	ID() models.RecordID
	Name() string
}

// CloudFolder is the Folder stored as a FolderRecordType record.
type CloudFolder struct {
	id        models.RecordID
	name      string
	changeTag string
}

var _ Folder = (*CloudFolder)(nil)

// NewCloudFolder returns a folder that has not been saved yet.
func NewCloudFolder(id models.RecordID, name string) *CloudFolder {
	return &CloudFolder{id: id, name: name}
}

// DefaultFolder returns the well-known default folder of zone.
func DefaultFolder(zone models.ZoneID) *CloudFolder {
	return NewCloudFolder(models.NewRecordID(DefaultFolderRecordName, zone), DefaultFolderName)
}

func (f *CloudFolder) ID() models.RecordID {
	return f.id
}

func (f *CloudFolder) Name() string {
	return f.name
}

// ChangeTag is the store's change tag of the record this folder was built from.
// It is empty for a folder that was never saved.
func (f *CloudFolder) ChangeTag() string {
	return f.changeTag
}

// IsDefault reports whether f has the default folder's reserved identity.
func (f *CloudFolder) IsDefault() bool {
	return f.id.Name == DefaultFolderRecordName
}

func (f *CloudFolder) Record() *models.Record {
	rec := models.NewRecord(FolderRecordType, f.id)
	rec.ChangeTag = f.changeTag
	rec.Set(FolderNameField, f.name)
	return rec
}

func (f *CloudFolder) String() string {
	return fmt.Sprintf("%s (%s)", f.name, f.id)
}

// FolderKind converts Folder records into *CloudFolder.
type FolderKind struct{}

var _ RecordKind[*CloudFolder] = FolderKind{}

func (FolderKind) RecordType() string {
	return FolderRecordType
}

func (FolderKind) FromRecord(rec *models.Record) (*CloudFolder, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil folder record", constants.ErrMalformedRecord)
	}
	if rec.Type != FolderRecordType {
		return nil, fmt.Errorf("%w: %s is a %q record, not %q", constants.ErrMalformedRecord, rec.ID, rec.Type, FolderRecordType)
	}
	name, ok := rec.String(FolderNameField)
	if !ok {
		return nil, fmt.Errorf("%w: folder %s has no string %q field", constants.ErrMalformedRecord, rec.ID, FolderNameField)
	}

	return &CloudFolder{
		id:        rec.ID,
		name:      name,
		changeTag: rec.ChangeTag,
	}, nil
}
