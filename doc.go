// The [sharednotes] package maps notes entities onto the generic records of a
// remote record store and keeps the one-default-folder-per-zone invariant when
// several clients race to create it.
//
// # Stores
//
// A [Manager] works against any [Store]. [DB] is the Store reached over the
// network: provide an endpoint URL to [FromEndpointURLString] so that it
// chooses the WebSocket or HTTP transport for you.
//
//	db, err := sharednotes.FromEndpointURLString(ctx, "ws://localhost:8000")
//	if err != nil {
//		return err
//	}
//	defer db.Close(ctx)
//
//	m, err := sharednotes.New(ctx, db)
//	if err != nil {
//		return err
//	}
//	folders, err := m.FetchFolders(ctx)
//
// Every Manager operation also has an Async form that delivers exactly one
// [Outcome] on a channel.
//
// # Records and kinds
//
// Records are described in the [github.com/sharednotes/sharednotes.go/pkg/models]
// package and are sent to the store as CBOR. A [RecordKind] converts the records
// of one record type into entities. [Query] and [CreateIfAbsent] work with any
// RecordKind, so adding an entity kind does not touch either of them.
//
// # Errors
//
// Store errors are *connection.RPCError values. Two of them are interpreted:
// a record type the store has never seen makes [Query] return no results, and
// a save conflict makes [CreateIfAbsent] return the store's copy. Everything
// else, including context cancellation, is returned unchanged.
package sharednotes
