package sharednotes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharednotes/sharednotes.go"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/models"
)

func TestDefaultFolder(t *testing.T) {
	zone := models.NewZoneID("notes", "alice")
	f := sharednotes.DefaultFolder(zone)

	assert.Equal(t, models.NewRecordID(sharednotes.DefaultFolderRecordName, zone), f.ID())
	assert.Equal(t, sharednotes.DefaultFolderName, f.Name())
	assert.True(t, f.IsDefault())
	assert.Empty(t, f.ChangeTag())
}

func TestFolderKind_roundtrip(t *testing.T) {
	folders := []*sharednotes.CloudFolder{
		sharednotes.DefaultFolder(models.DefaultZoneID),
		sharednotes.NewCloudFolder(models.GenerateRecordID(models.DefaultZoneID), "Work"),
		sharednotes.NewCloudFolder(models.NewRecordID("x", models.NewZoneID("z", "o")), ""),
	}

	for _, f := range folders {
		rec := f.Record()
		assert.Equal(t, sharednotes.FolderRecordType, rec.Type)

		got, err := sharednotes.FolderKind{}.FromRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, f.ID(), got.ID())
		assert.Equal(t, f.Name(), got.Name())
	}
}

func TestFolderKind_keepsChangeTag(t *testing.T) {
	rec := sharednotes.DefaultFolder(models.DefaultZoneID).Record()
	rec.ChangeTag = "tag-1"

	f, err := sharednotes.FolderKind{}.FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, "tag-1", f.ChangeTag())
	assert.Equal(t, "tag-1", f.Record().ChangeTag)
}

func TestFolderKind_malformed(t *testing.T) {
	id := models.NewRecordID("f1", models.DefaultZoneID)

	wrongType := models.NewRecord("Note", id)
	wrongType.Set(sharednotes.FolderNameField, "Work")

	missingName := models.NewRecord(sharednotes.FolderRecordType, id)

	wrongName := models.NewRecord(sharednotes.FolderRecordType, id)
	wrongName.Set(sharednotes.FolderNameField, 42)

	testCases := map[string]*models.Record{
		"nil":          nil,
		"wrong type":   wrongType,
		"missing name": missingName,
		"name not str": wrongName,
	}

	for name, rec := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := sharednotes.FolderKind{}.FromRecord(rec)
			require.ErrorIs(t, err, constants.ErrMalformedRecord)
		})
	}
}
