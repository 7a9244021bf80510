// Package gorillaws is the WebSocket transport built on gorilla/websocket.
//
// Requests are multiplexed over one connection and matched to responses by
// request ID. Query results are streamed as item frames, so this connection
// implements connection.Streamer.
package gorillaws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	gorilla "github.com/gorilla/websocket"

	"github.com/sharednotes/sharednotes.go/internal/codec"
	"github.com/sharednotes/sharednotes.go/internal/rand"
	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
)

// DefaultDialer is the default gorilla dialer used by the Connection
//
// It uses the default gorilla dialer with the following modifications:
// - EnableCompression is set to true
// - Subprotocols is set to ["cbor"]
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
	Subprotocols:      []string{"cbor"},
}

type Connection struct {
	connection.Toolkit

	Conn *gorilla.Conn
	// connLock serializes writes and guards Conn.
	connLock sync.Mutex

	// Timeout is the timeout for receiving the RPC response after
	// you've successfully sent the request.
	//
	// You can set it to 0 to disable the timeout, and instead use context.Context and context.WithTimeout
	// to control the timeout.
	Timeout time.Duration

	logger logger.Logger

	// connCloseCh is closed once the connection is unusable,
	// either because Close was called or because reading failed.
	connCloseCh    chan struct{}
	connCloseError error
	closeOnce      sync.Once
}

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

// Connect dials the store's /rpc endpoint and starts reading responses in the background.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.PreConnectionChecks(); err != nil {
		return err
	}

	conn, res, err := DefaultDialer.DialContext(ctx, fmt.Sprintf("%s/rpc", c.BaseURL), nil)
	if res != nil {
		defer res.Body.Close()
	}
	if err != nil {
		return err
	}

	c.connLock.Lock()
	c.Conn = conn
	c.connCloseCh = make(chan struct{})
	c.connLock.Unlock()

	go c.readLoop(conn)

	return nil
}

func (c *Connection) SetTimeOut(timeout time.Duration) *Connection {
	c.Timeout = timeout
	return c
}

func (c *Connection) Logger(l logger.Logger) *Connection {
	c.logger = l
	return c
}

// IsClosed reports whether the connection can no longer be used.
func (c *Connection) IsClosed() bool {
	c.connLock.Lock()
	ch := c.connCloseCh
	c.connLock.Unlock()

	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Close sends a close frame and closes the underlying connection.
//
// The context bounds how long writing the close frame may take. The local
// connection is closed even if that write fails or the context expires.
func (c *Connection) Close(ctx context.Context) error {
	c.connLock.Lock()
	conn := c.Conn
	c.Conn = nil
	c.connLock.Unlock()

	if conn == nil {
		return nil
	}

	c.closeWithError(constants.ErrConnectionClosed)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Second)
	}
	msg := gorilla.FormatCloseMessage(constants.CloseMessageCode, "")
	if err := conn.WriteControl(gorilla.CloseMessage, msg, deadline); err != nil {
		c.logger.Debug("failed to write close message", "error", err)
	}

	return conn.Close()
}

func (c *Connection) GetUnmarshaler() codec.Unmarshaler {
	return c.Unmarshaler
}

// Send sends a request and waits for its final response.
// Item frames for the request, if any, are dropped.
func (c *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	return c.Stream(ctx, nil, method, params...)
}

// Stream sends a request, passes each item frame to onItem in arrival order,
// and returns the final response.
//
// The `ctx` is wrapped with a timeout if `Timeout` is set.
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

	if c.Conn == nil {
		return constants.ErrConnectionClosed
	}
	return c.Conn.WriteMessage(gorilla.BinaryMessage, data)
}

func (c *Connection) closeError() error {
	return c.connCloseError
}

func (c *Connection) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.connCloseError = err
		close(c.connCloseCh)
	})
}

// readLoop handles frames one at a time so that stream items keep their order.
func (c *Connection) readLoop(conn *gorilla.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, net.ErrClosed), gorilla.IsCloseError(err, gorilla.CloseNormalClosure):
				c.closeWithError(constants.ErrConnectionClosed)
			default:
				c.logger.Error("websocket read failed", "error", err)
				c.closeWithError(fmt.Errorf("%w: %w", constants.ErrConnectionClosed, err))
			}
			return
		}
		c.handleResponse(data)
	}
}

func (c *Connection) handleResponse(data []byte) {
	var res connection.RPCResponse[cbor.RawMessage]
	if err := c.Unmarshaler.Unmarshal(data, &res); err != nil {
		c.logger.Error("failed to decode frame", "error", err)
		return
	}

	if res.ID == nil {
		// Without an ID there is no request to hand the frame to.
		c.logger.Error("frame without id", "error", res.Error)
		return
	}

	id := fmt.Sprint(res.ID)
	if !c.Deliver(id, res) {
		c.logger.Warn("no request waiting for frame", "id", id)
	}
}
