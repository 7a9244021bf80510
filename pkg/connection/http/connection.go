// Package http is the request/response transport: one HTTP POST per RPC.
//
// Query results come back as a single page in the final response; this
// connection does not implement connection.Streamer.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"

	"github.com/sharednotes/sharednotes.go/internal/codec"
	"github.com/sharednotes/sharednotes.go/internal/rand"
	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
)

type Connection struct {
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler

	httpClient *http.Client
	logger     logger.Logger
}

func New(p *connection.Config) *Connection {
	con := Connection{
		Marshaler:   p.Marshaler,
		Unmarshaler: p.Unmarshaler,
		BaseURL:     p.BaseURL,
		logger:      p.Logger,
		httpClient: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
	}

	if p.Timeout > 0 {
		con.httpClient.Timeout = p.Timeout
	}
	if con.logger == nil {
		con.logger = logger.Nop()
	}

	return &con
}

func (c *Connection) Connect(ctx context.Context) error {
	tk := connection.NewToolkit(c.BaseURL, c.Marshaler, c.Unmarshaler)
	if err := tk.PreConnectionChecks(); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}
	if _, err := c.MakeRequest(httpReq); err != nil {
		return err
	}

	return nil
}

func (c *Connection) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Connection) SetTimeout(timeout time.Duration) *Connection {
	c.httpClient.Timeout = timeout
	return c
}

func (c *Connection) SetHTTPClient(client *http.Client) *Connection {
	c.httpClient = client
	return c
}

func (c *Connection) GetUnmarshaler() codec.Unmarshaler {
	return c.Unmarshaler
}

func (c *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	if c.BaseURL == "" {
		return nil, constants.ErrNoBaseURL
	}

	request := &connection.RPCRequest{
		ID:     rand.NewRequestID(constants.RequestIDLength),
		Method: method,
		Params: params,
	}
	reqBody, err := c.Marshaler.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rpc", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/cbor")
	req.Header.Set("Content-Type", "application/cbor")

	c.logger.Debug("sending rpc", "method", method, "id", request.ID)

	respData, err := c.MakeRequest(req)
	if err != nil {
		return nil, err
	}

	var res connection.RPCResponse[cbor.RawMessage]
	if err := c.Unmarshaler.Unmarshal(respData, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", constants.InvalidResponse, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}

	return &res, nil
}

// MakeRequest performs req and returns the body of a 2xx response.
// Error bodies are decoded into *connection.RPCError when they are CBOR or JSON.
func (c *Connection) MakeRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBytes, nil
	}

	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	switch contentType {
	case "application/cbor":
		var errorResponse connection.RPCResponse[cbor.RawMessage]
		if err := c.Unmarshaler.Unmarshal(respBytes, &errorResponse); err != nil || errorResponse.Error == nil {
			return nil, fmt.Errorf("%w: status %d", constants.InvalidResponse, resp.StatusCode)
		}
		return nil, errorResponse.Error
	case "application/json":
		var rpcErr connection.RPCError
		if err := json.Unmarshal(respBytes, &rpcErr); err != nil {
			return nil, fmt.Errorf("%w: status %d", constants.InvalidResponse, resp.StatusCode)
		}
		return nil, &rpcErr
	default:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBytes))
	}
}
