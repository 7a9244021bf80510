// Package gws is the WebSocket transport built on lxzan/gws.
//
// It speaks the same protocol as gorillaws and can be swapped in through
// connection.Config.WebSocketEngine.
package gws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/lxzan/gws"

	"github.com/sharednotes/sharednotes.go/internal/codec"
	"github.com/sharednotes/sharednotes.go/internal/rand"
	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
)

type Connection struct {
	connection.Toolkit

	conn     *gws.Conn
	connLock sync.Mutex

	// Timeout bounds each request. Zero disables it.
	Timeout time.Duration

	logger logger.Logger

	connCloseCh    chan struct{}
	connCloseError error
	closeOnce      sync.Once
}

var (
	_ connection.Connection = (*Connection)(nil)
	_ connection.Streamer   = (*Connection)(nil)
)

func New(p *connection.Config) *Connection {
	c := &Connection{
		Toolkit: connection.NewToolkit(p.BaseURL, p.Marshaler, p.Unmarshaler),
		Timeout: constants.DefaultWSTimeout,
		logger:  p.Logger,
	}
	if p.Timeout > 0 {
		c.Timeout = p.Timeout
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	return c
}

type handler struct {
	gws.BuiltinEventHandler
	conn *Connection
}

func (h *handler) OnClose(_ *gws.Conn, err error) {
	var closeErr *gws.CloseError
	switch {
	case err == nil, errors.Is(err, net.ErrClosed):
		h.conn.closeWithError(constants.ErrConnectionClosed)
	case errors.As(err, &closeErr) && closeErr.Code == constants.CloseMessageCode:
		h.conn.closeWithError(constants.ErrConnectionClosed)
	default:
		h.conn.logger.Error("websocket read failed", "error", err)
		h.conn.closeWithError(fmt.Errorf("%w: %w", constants.ErrConnectionClosed, err))
	}
}

func (h *handler) OnMessage(_ *gws.Conn, message *gws.Message) {
	defer message.Close()
	h.conn.handleResponse(message.Bytes())
}

func (c *Connection) SetTimeout(timeout time.Duration) *Connection {
	c.Timeout = timeout
	return c
}

// Connect dials the store's /rpc endpoint and starts the read loop.
//
// gws dials without a context, so ctx is only checked before dialing.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.PreConnectionChecks(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	option := &gws.ClientOption{
		Addr: fmt.Sprintf("%s/rpc", c.BaseURL),
		RequestHeader: http.Header{
			"Sec-WebSocket-Protocol": []string{"cbor"},
		},
		PermessageDeflate: gws.PermessageDeflate{
			Enabled: true,
		},
	}

	conn, res, err := gws.NewClient(&handler{conn: c}, option)
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	if err != nil {
		return err
	}

	c.connLock.Lock()
	c.conn = conn
	c.connCloseCh = make(chan struct{})
	c.connLock.Unlock()

	go conn.ReadLoop()

	return nil
}

func (c *Connection) Close(ctx context.Context) error {
	c.connLock.Lock()
	conn := c.conn
	c.conn = nil
	c.connLock.Unlock()

	if conn == nil {
		return nil
	}

	c.closeWithError(constants.ErrConnectionClosed)

	// WriteClose tears the socket down itself once the frame is written.
	conn.WriteClose(constants.CloseMessageCode, nil)

	if err := conn.NetConn().Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *Connection) GetUnmarshaler() codec.Unmarshaler {
	return c.Unmarshaler
}

// Send sends a request and waits for its final response, dropping item frames.
func (c *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	return c.Stream(ctx, nil, method, params...)
}

func (c *Connection) Stream(
	ctx context.Context,
	onItem func(item cbor.RawMessage) error,
	method string,
	params ...any,
) (*connection.RPCResponse[cbor.RawMessage], error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	c.connLock.Lock()
	closeCh := c.connCloseCh
	c.connLock.Unlock()
	if closeCh == nil {
		return nil, constants.ErrConnectionClosed
	}

	select {
	case <-closeCh:
		return nil, c.closeError()
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	id := rand.NewRequestID(constants.RequestIDLength)
	request := &connection.RPCRequest{
		ID:     id,
		Method: method,
		Params: params,
	}

	responseChan, err := c.CreateResponseChannel(id)
	if err != nil {
		return nil, err
	}
	defer c.RemoveResponseChannel(id)

	if err := c.write(request); err != nil {
		return nil, err
	}

	return connection.Await(ctx, responseChan, closeCh, c.closeError, onItem)
}

func (c *Connection) write(v any) error {
	data, err := c.Marshaler.Marshal(v)
	if err != nil {
		return err
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()

	if c.conn == nil {
		return constants.ErrConnectionClosed
	}
	return c.conn.WriteMessage(gws.OpcodeBinary, data)
}

func (c *Connection) closeError() error {
	c.connLock.Lock()
	defer c.connLock.Unlock()
	return c.connCloseError
}

func (c *Connection) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.connLock.Lock()
		c.connCloseError = err
		ch := c.connCloseCh
		c.connLock.Unlock()
		close(ch)
	})
}

func (c *Connection) handleResponse(data []byte) {
	var res connection.RPCResponse[cbor.RawMessage]
	if err := c.Unmarshaler.Unmarshal(data, &res); err != nil {
		c.logger.Error("failed to decode frame", "error", err)
		return
	}

	if res.ID == nil {
		c.logger.Error("frame without id", "error", res.Error)
		return
	}

	id := fmt.Sprint(res.ID)
	if !c.Deliver(id, res) {
		c.logger.Warn("no request waiting for frame", "id", id)
	}
}
