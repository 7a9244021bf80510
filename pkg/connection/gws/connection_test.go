package gws

import (
	"context"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/models"
)

func newTestConnection() *Connection {
	return New(&connection.Config{
		BaseURL:     "ws://store.test",
		Marshaler:   models.CborMarshaler{},
		Unmarshaler: models.CborUnmarshaler{},
	})
}

func TestNew(t *testing.T) {
	c := newTestConnection()
	assert.Equal(t, constants.DefaultWSTimeout, c.Timeout)
	assert.NotNil(t, c.logger)

	c = New(&connection.Config{Timeout: time.Second})
	assert.Equal(t, time.Second, c.Timeout)
}

func TestHandleResponse(t *testing.T) {
	c := newTestConnection()
	ch, err := c.CreateResponseChannel("abc")
	require.NoError(t, err)
	defer c.RemoveResponseChannel("abc")

	item, err := models.CborMarshaler{}.Marshal("x")
	require.NoError(t, err)
	data, err := models.CborMarshaler{}.Marshal(connection.RPCResponse[cbor.RawMessage]{ID: "abc", Item: item})
	require.NoError(t, err)

	c.handleResponse(data)

	select {
	case res := <-ch.Frames:
		assert.Equal(t, "abc", res.ID)
		assert.True(t, res.IsItem())
	default:
		t.Fatal("frame was not routed")
	}
}

func TestHandleResponse_dropped(t *testing.T) {
	c := newTestConnection()
	ch, err := c.CreateResponseChannel("abc")
	require.NoError(t, err)
	defer c.RemoveResponseChannel("abc")

	noID, err := models.CborMarshaler{}.Marshal(connection.RPCResponse[cbor.RawMessage]{
		Error: &connection.RPCError{Code: constants.CodeParseError},
	})
	require.NoError(t, err)
	otherID, err := models.CborMarshaler{}.Marshal(connection.RPCResponse[cbor.RawMessage]{ID: "other"})
	require.NoError(t, err)

	c.handleResponse([]byte{0xff})
	c.handleResponse(noID)
	c.handleResponse(otherID)

	assert.Empty(t, ch.Frames)
}

func TestSend_notConnected(t *testing.T) {
	c := newTestConnection()

	_, err := c.Send(context.Background(), string(connection.Zone))
	require.ErrorIs(t, err, constants.ErrConnectionClosed)
	require.NoError(t, c.Close(context.Background()))
}
