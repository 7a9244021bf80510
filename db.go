package sharednotes

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fxamacker/cbor/v2"

	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/connection/gorillaws"
	"github.com/sharednotes/sharednotes.go/pkg/connection/gws"
	"github.com/sharednotes/sharednotes.go/pkg/connection/http"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/models"
	"github.com/sharednotes/sharednotes.go/pkg/query"
)

// DB is a Store reached over a connection.Connection.
type DB struct {
	con connection.Connection
}

var _ Store = (*DB)(nil)

// FromEndpointURLString connects to the record store at connectionURL.
//
// The scheme picks the transport: ws and wss use WebSocket, http and https use HTTP.
func FromEndpointURLString(ctx context.Context, connectionURL string) (*DB, error) {
	u, err := url.ParseRequestURI(connectionURL)
	if err != nil {
		return nil, err
	}

	return FromConfig(ctx, connection.NewConfig(u))
}

// FromConfig connects with the transport matching conf.URL's scheme.
// For WebSocket URLs, conf.WebSocketEngine picks the client library.
func FromConfig(ctx context.Context, conf *connection.Config) (*DB, error) {
	var con connection.Connection
	switch scheme := conf.URL.Scheme; scheme {
	case constants.WebsocketScheme, constants.WebsocketSecureScheme:
		switch conf.WebSocketEngine {
		case "", connection.EngineGorilla:
			con = gorillaws.New(conf)
		case connection.EngineGWS:
			con = gws.New(conf)
		default:
			return nil, fmt.Errorf("unknown websocket engine: %q", conf.WebSocketEngine)
		}
	case constants.HTTPScheme, constants.HTTPSecureScheme:
		con = http.New(conf)
	default:
		return nil, fmt.Errorf("%w: %q", constants.ErrUnsupportedScheme, scheme)
	}

	return FromConnection(ctx, con)
}

// FromConnection connects con and returns a DB using it.
func FromConnection(ctx context.Context, con connection.Connection) (*DB, error) {
	if err := con.Connect(ctx); err != nil {
		return nil, err
	}

	return &DB{con: con}, nil
}

// Con returns the underlying connection.
func (db *DB) Con() connection.Connection {
	return db.con
}

func (db *DB) Close(ctx context.Context) error {
	return db.con.Close(ctx)
}

func (db *DB) DefaultZone(ctx context.Context) (models.ZoneID, error) {
	var res connection.RPCResponse[models.ZoneID]
	if err := connection.Send(db.con, ctx, &res, string(connection.Zone)); err != nil {
		return models.ZoneID{}, err
	}
	if res.Result == nil || res.Result.IsZero() {
		return models.ZoneID{}, fmt.Errorf("%w: zone: empty result", constants.InvalidResponse)
	}

	return *res.Result, nil
}

func (db *DB) Save(ctx context.Context, rec *models.Record) (*models.Record, error) {
	var res connection.RPCResponse[models.Record]
	if err := connection.Send(db.con, ctx, &res, string(connection.Save), rec); err != nil {
		return nil, err
	}
	if res.Result == nil {
		return nil, fmt.Errorf("%w: save: empty result", constants.InvalidResponse)
	}

	return res.Result, nil
}

// Query runs q. Over a streaming connection fn sees each record as it arrives;
// otherwise it is called for each record of the final response.
func (db *DB) Query(ctx context.Context, q *query.Query, fn func(*models.Record)) (*query.Cursor, error) {
	if s, ok := db.con.(connection.Streamer); ok {
		return db.stream(ctx, s, q, fn)
	}

	var res connection.RPCResponse[connection.QueryResult]
	if err := connection.Send(db.con, ctx, &res, string(connection.Query), q); err != nil {
		return nil, err
	}
	if res.Result == nil {
		return nil, nil
	}

	for _, rec := range res.Result.Records {
		fn(rec)
	}

	return res.Result.Cursor, nil
}

func (db *DB) stream(ctx context.Context, s connection.Streamer, q *query.Query, fn func(*models.Record)) (*query.Cursor, error) {
	raw, err := s.Stream(ctx, func(item cbor.RawMessage) error {
		rec, err := connection.Decode[models.Record](db.con, item)
		if err != nil {
			return fmt.Errorf("%w: %w", constants.InvalidResponse, err)
		}
		fn(rec)
		return nil
	}, string(connection.Query), q)
	if err != nil {
		return nil, err
	}
	if raw.Result == nil {
		return nil, nil
	}

	result, err := connection.Decode[connection.QueryResult](db.con, *raw.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.InvalidResponse, err)
	}

	return result.Cursor, nil
}
