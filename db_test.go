package sharednotes_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sharednotes/sharednotes.go"
	"github.com/sharednotes/sharednotes.go/internal/fakestore"
	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
	"github.com/sharednotes/sharednotes.go/pkg/models"
	"github.com/sharednotes/sharednotes.go/pkg/query"
)

// DBTestSuite runs the manager against the fake RPC server over one transport.
type DBTestSuite struct {
	suite.Suite
	scheme string
	engine string

	ctx     context.Context
	server  *fakestore.Server
	db      *sharednotes.DB
	manager *sharednotes.Manager
}

func TestDB_HTTP(t *testing.T) {
	suite.Run(t, &DBTestSuite{scheme: "http"})
}

func TestDB_WebSocket(t *testing.T) {
	suite.Run(t, &DBTestSuite{scheme: "ws"})
}

func TestDB_GWS(t *testing.T) {
	suite.Run(t, &DBTestSuite{scheme: "ws", engine: connection.EngineGWS})
}

func (s *DBTestSuite) SetupTest() {
	s.ctx = context.Background()

	store := fakestore.New(fakestore.WithArrivalOrder(fakestore.ArrivalReversed))
	s.server = fakestore.NewServer("127.0.0.1:0", store)
	s.Require().NoError(s.server.Start())

	u, err := url.Parse(s.server.URL(s.scheme))
	s.Require().NoError(err)
	conf := connection.NewConfig(u)
	conf.Logger = logger.Nop()
	conf.WebSocketEngine = s.engine

	db, err := sharednotes.FromConfig(s.ctx, conf)
	s.Require().NoError(err)
	s.db = db

	m, err := sharednotes.New(s.ctx, db)
	s.Require().NoError(err)
	s.manager = m
}

func (s *DBTestSuite) TearDownTest() {
	s.NoError(s.db.Close(s.ctx))
	s.NoError(s.server.Stop())
}

func (s *DBTestSuite) TestZone() {
	s.Equal(models.DefaultZoneID, s.manager.Zone())
}

func (s *DBTestSuite) TestFetchFolders_empty() {
	folders, err := s.manager.FetchFolders(s.ctx)
	s.Require().NoError(err)
	s.Empty(folders)
}

func (s *DBTestSuite) TestFetchFolders_sortedByName() {
	saveFolders(s.T(), s.db, "Work", "Personal")

	folders, err := s.manager.FetchFolders(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Personal", "Work"}, folderNames(folders))
}

func (s *DBTestSuite) TestCreateDefaultFolder_twice() {
	first, err := s.manager.CreateDefaultFolder(s.ctx)
	s.Require().NoError(err)
	s.Equal(sharednotes.DefaultFolderRecordName, first.ID().Name)

	second, err := s.manager.CreateDefaultFolder(s.ctx)
	s.Require().NoError(err)
	s.Equal(first.ID(), second.ID())
	s.Equal(first.Name(), second.Name())
	s.Equal(1, s.server.Store().Len())
}

func (s *DBTestSuite) TestCreateDefaultFolder_concurrent() {
	a := s.manager.CreateDefaultFolderAsync(s.ctx)
	b := s.manager.CreateDefaultFolderAsync(s.ctx)

	fa, errA := (<-a).Get()
	fb, errB := (<-b).Get()
	s.Require().NoError(errA)
	s.Require().NoError(errB)
	s.Equal(fa.ID(), fb.ID())
}

func (s *DBTestSuite) TestSave_conflictCarriesServerRecord() {
	id := models.NewRecordID("inbox", models.DefaultZoneID)
	_, err := s.db.Save(s.ctx, sharednotes.NewCloudFolder(id, "Inbox").Record())
	s.Require().NoError(err)

	_, err = s.db.Save(s.ctx, sharednotes.NewCloudFolder(id, "Other").Record())
	serverRecord, ok := sharednotes.ServerRecordChanged(err)
	s.Require().True(ok, "unexpected error %v", err)
	s.Equal(id, serverRecord.ID)

	name, _ := serverRecord.String(sharednotes.FolderNameField)
	s.Equal("Inbox", name)
}

func (s *DBTestSuite) TestQuery_cursor() {
	saveFolders(s.T(), s.db, "c", "a", "b")

	q := query.New(sharednotes.FolderRecordType).OrderBy(query.Asc(sharednotes.FolderNameField)).Limit(2)

	var got []string
	cursor, err := s.db.Query(s.ctx, q, func(rec *models.Record) {
		name, _ := rec.String(sharednotes.FolderNameField)
		got = append(got, name)
	})
	s.Require().NoError(err)
	s.Require().NotNil(cursor)
	s.ElementsMatch([]string{"a", "b"}, got)

	got = nil
	cursor, err = s.db.Query(s.ctx, q.After(cursor), func(rec *models.Record) {
		name, _ := rec.String(sharednotes.FolderNameField)
		got = append(got, name)
	})
	s.Require().NoError(err)
	s.Nil(cursor)
	s.Equal([]string{"c"}, got)
}

func (s *DBTestSuite) TestFetchFolders_errorPassThrough() {
	saveFolders(s.T(), s.db, "Work")
	s.server.AddStubResponse(fakestore.ErrorStubResponse(connection.Query, constants.CodePermissionFailure, "permission denied"))

	_, err := s.manager.FetchFolders(s.ctx)

	var rpcErr *connection.RPCError
	s.Require().ErrorAs(err, &rpcErr)
	s.Equal(constants.CodePermissionFailure, rpcErr.Code)
	s.Equal("permission denied", rpcErr.Message)
}

func (s *DBTestSuite) TestCreateDefaultFolder_errorPassThrough() {
	s.server.AddStubResponse(fakestore.ErrorStubResponse(connection.Save, constants.CodeQuotaExceeded, "quota exceeded"))

	_, err := s.manager.CreateDefaultFolder(s.ctx)
	s.Require().ErrorIs(err, &connection.RPCError{Code: constants.CodeQuotaExceeded})
}

func (s *DBTestSuite) TestCanceled() {
	s.server.AddStubResponse(fakestore.StubResponse{
		Method: connection.Query,
		Failures: []fakestore.FailureConfig{
			{Type: fakestore.FailureRequestDelay, Probability: 1, MinDelay: time.Second},
		},
	})

	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()

	_, err := s.manager.FetchFolders(ctx)
	s.Require().ErrorIs(err, context.DeadlineExceeded)
}

func TestFromEndpointURLString_unsupportedScheme(t *testing.T) {
	_, err := sharednotes.FromEndpointURLString(context.Background(), "ftp://localhost:21")
	require.ErrorIs(t, err, constants.ErrUnsupportedScheme)
}

func TestFromConfig_unknownEngine(t *testing.T) {
	u, err := url.Parse("ws://localhost:8000")
	require.NoError(t, err)
	conf := connection.NewConfig(u)
	conf.WebSocketEngine = "nhooyr"

	_, err = sharednotes.FromConfig(context.Background(), conf)
	require.ErrorContains(t, err, "unknown websocket engine")
}

func TestFromEndpointURLString_invalidURL(t *testing.T) {
	_, err := sharednotes.FromEndpointURLString(context.Background(), "not a url")
	require.Error(t, err)
}

func TestDB_HTTP_invalidResponse(t *testing.T) {
	ctx := context.Background()
	server := fakestore.NewServer("127.0.0.1:0", nil)
	require.NoError(t, server.Start())
	defer server.Stop()

	db, err := sharednotes.FromEndpointURLString(ctx, server.URL("http"))
	require.NoError(t, err)
	defer db.Close(ctx)

	server.SetGlobalFailures([]fakestore.FailureConfig{
		{Type: fakestore.FailureInvalidResponse, Probability: 1},
	})

	_, err = db.DefaultZone(ctx)
	require.ErrorIs(t, err, constants.InvalidResponse)
}

func TestDB_WebSocket_dropConnection(t *testing.T) {
	ctx := context.Background()
	server := fakestore.NewServer("127.0.0.1:0", nil)
	require.NoError(t, server.Start())
	defer server.Stop()

	db, err := sharednotes.FromEndpointURLString(ctx, server.URL("ws"))
	require.NoError(t, err)
	defer db.Close(ctx)

	server.SetGlobalFailures([]fakestore.FailureConfig{
		{Type: fakestore.FailureDropConnection, Probability: 1},
	})

	_, err = db.DefaultZone(ctx)
	require.ErrorIs(t, err, constants.ErrConnectionClosed)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
