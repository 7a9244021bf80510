package sharednotes

import (
	"context"
	"errors"

	"github.com/sharednotes/sharednotes.go/pkg/models"
	"github.com/sharednotes/sharednotes.go/pkg/query"
)

// Store is the remote record store the Manager reads and writes.
//
// Errors the store reports are expected to carry a *connection.RPCError so
// that IsUnknownItem and ServerRecordChanged can classify them. DB and the
// in-memory fake store both implement Store.
type Store interface {
	DefaultZone(ctx context.Context) (models.ZoneID, error)

	// Save creates or updates rec and returns the record as stored.
	Save(ctx context.Context, rec *models.Record) (*models.Record, error)

	// Query calls fn for each record of the page selected by q, then returns
	// the cursor of the next page, which is nil after the last page.
	Query(ctx context.Context, q *query.Query, fn func(*models.Record)) (*query.Cursor, error)
}

// Manager manages a user's folders in one zone of a Store.
//
// A Manager holds no mutable state. It is safe for concurrent use and its
// calls are independent of each other.
type Manager struct {
	store Store
	zone  models.ZoneID
}

type Option func(m *Manager)

// WithZone uses zone instead of asking the store for its default zone.
func WithZone(zone models.ZoneID) Option {
	return func(m *Manager) {
		m.zone = zone
	}
}

// New returns a Manager for store, resolving the store's default zone unless WithZone is given.
func New(ctx context.Context, store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("sharednotes: nil store")
	}

	m := &Manager{store: store}
	for _, opt := range opts {
		opt(m)
	}

	if m.zone.IsZero() {
		zone, err := store.DefaultZone(ctx)
		if err != nil {
			return nil, err
		}
		m.zone = zone
	}

	return m, nil
}

func (m *Manager) Zone() models.ZoneID {
	return m.zone
}

// CreateDefaultFolder makes sure the zone's default folder exists and returns it.
//
// If another client created it first, the folder already in the store is returned.
func (m *Manager) CreateDefaultFolder(ctx context.Context) (Folder, error) {
	folder, err := CreateIfAbsent[*CloudFolder](ctx, m.store, FolderKind{}, DefaultFolder(m.zone))
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// FetchFolders returns the zone's folders sorted by name.
//
// Only the store's first page of folders is read. A zone in which no folder
// was ever saved has no folders, which is not an error.
func (m *Manager) FetchFolders(ctx context.Context) ([]Folder, error) {
	q := query.New(FolderRecordType).
		InZone(m.zone).
		Where(query.All()).
		OrderBy(query.Asc(FolderNameField))

	return Query[*CloudFolder, Folder](ctx, m.store, FolderKind{}, q, func(f *CloudFolder) Folder {
		return f
	})
}

// CreateDefaultFolderAsync is CreateDefaultFolder delivering its single Outcome on the returned channel.
func (m *Manager) CreateDefaultFolderAsync(ctx context.Context) <-chan Outcome[Folder] {
	return async(func() (Folder, error) {
		return m.CreateDefaultFolder(ctx)
	})
}

// FetchFoldersAsync is FetchFolders delivering its single Outcome on the returned channel.
func (m *Manager) FetchFoldersAsync(ctx context.Context) <-chan Outcome[[]Folder] {
	return async(func() ([]Folder, error) {
		return m.FetchFolders(ctx)
	})
}
