package fakestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/mux"
	"github.com/lxzan/gws"

	"github.com/sharednotes/sharednotes.go/internal/codec"
	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
	"github.com/sharednotes/sharednotes.go/pkg/models"
	"github.com/sharednotes/sharednotes.go/pkg/query"
)

// FailureType represents the type of failure to inject during request processing
type FailureType string

const (
	// FailureNone indicates no failure injection
	FailureNone FailureType = "none"
	// FailureRequestDelay delays before processing the request
	FailureRequestDelay FailureType = "request_delay"
	// FailureInvalidResponse sends random binary data instead of a valid response
	FailureInvalidResponse FailureType = "invalid_response"
	// FailureDropConnection immediately closes the underlying network connection
	FailureDropConnection FailureType = "drop_connection"
	// FailureWebSocketClose sends a WebSocket close frame. HTTP requests are dropped instead.
	FailureWebSocketClose FailureType = "websocket_close"
)

// FailureConfig defines how and when to inject a specific failure type
type FailureConfig struct {
	Type FailureType
	// Probability of triggering this failure (0.0 to 1.0)
	Probability float64
	// MinDelay and MaxDelay bound the delay of FailureRequestDelay
	MinDelay time.Duration
	MaxDelay time.Duration
	// CloseCode is the WebSocket close code for FailureWebSocketClose
	CloseCode uint16
}

// StubResponse overrides the store for every request to Method.
// A stub without Error still runs the request against the store after its failures are applied.
type StubResponse struct {
	Method   connection.RPCFunction
	Error    *connection.RPCError
	Failures []FailureConfig
}

// ErrorStubResponse creates a stub response that returns an RPC error
func ErrorStubResponse(method connection.RPCFunction, code int, message string) StubResponse {
	return StubResponse{
		Method: method,
		Error: &connection.RPCError{
			Code:    code,
			Message: message,
		},
	}
}

// Server exposes a Store over HTTP and WebSocket.
//
//	GET  /health  liveness check
//	POST /rpc     one CBOR request, one CBOR response
//	GET  /rpc     WebSocket upgrade; query records are streamed as item frames
type Server struct {
	addr     string
	store    *Store
	listener net.Listener
	server   *http.Server
	upgrader *gws.Upgrader

	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
	logger      logger.Logger

	mu             sync.RWMutex
	stubResponses  []StubResponse
	globalFailures []FailureConfig
	connections    map[*gws.Conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// Handler implements gws.Event for the server's WebSocket connections
type Handler struct {
	gws.BuiltinEventHandler
	server *Server
}

type rpcRequest struct {
	ID     any               `cbor:"id"`
	Method string            `cbor:"method"`
	Params []cbor.RawMessage `cbor:"params"`
}

// NewServer creates a server for store, or for a new empty Store when store is nil.
// Use "127.0.0.1:0" to bind to a random available port.
func NewServer(addr string, store *Store) *Server {
	if store == nil {
		store = New()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:        addr,
		store:       store,
		marshaler:   models.CborMarshaler{},
		unmarshaler: models.CborUnmarshaler{},
		logger:      logger.Nop(),
		connections: make(map[*gws.Conn]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}

	s.upgrader = gws.NewUpgrader(&Handler{server: s}, &gws.ServerOption{
		// Don't enforce sub-protocol for testing flexibility
	})

	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) SetLogger(l logger.Logger) {
	s.logger = l
}

// AddStubResponse adds a stub response configuration to the server.
// The first stub added for a method wins.
func (s *Server) AddStubResponse(stub StubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubResponses = append(s.stubResponses, stub)
}

// SetGlobalFailures sets failure configurations that apply to all requests.
// These are checked before stub-specific failures.
func (s *Server) SetGlobalFailures(failures []FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalFailures = failures
}

// Router returns the server's routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rpc", s.handleHTTP).Methods(http.MethodPost)
	r.HandleFunc("/rpc", s.handleUpgrade).Methods(http.MethodGet)
	return r
}

// Start starts the server and begins accepting connections.
// Returns an error if the server cannot bind to the specified address.
func (s *Server) Start() error {
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "error", err)
		}
	}()

	return nil
}

// Stop closes the listener and every open WebSocket connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for socket := range s.connections {
		_ = socket.NetConn().Close()
	}
	clear(s.connections)
	s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.server.Close()
}

// Address returns the actual address the server is listening on.
// This is useful when using "127.0.0.1:0" to get the assigned port.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the server's endpoint URL for scheme, e.g. "ws" or "http".
func (s *Server) URL(scheme string) string {
	return fmt.Sprintf("%s://%s", scheme, s.Address())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeHTTP(w, http.StatusBadRequest, errorFrame(nil, constants.CodeParseError, err.Error()))
		return
	}

	var req rpcRequest
	if err := s.unmarshaler.Unmarshal(body, &req); err != nil {
		s.writeHTTP(w, http.StatusBadRequest, errorFrame(nil, constants.CodeParseError, "Parse error"))
		return
	}

	stubErr, failures := s.match(req.Method)
	for _, failure := range failures {
		if !shouldTriggerFailure(failure.Probability) {
			continue
		}
		if stop := s.applyHTTPFailure(r.Context(), w, failure); stop {
			return
		}
	}
	if stubErr != nil {
		s.writeHTTP(w, http.StatusOK, &connection.RPCResponse[any]{ID: req.ID, Error: stubErr})
		return
	}

	result, err := s.call(r.Context(), &req, nil)
	if err != nil {
		s.writeHTTP(w, http.StatusOK, &connection.RPCResponse[any]{ID: req.ID, Error: toRPCError(err)})
		return
	}
	s.writeHTTP(w, http.StatusOK, &connection.RPCResponse[any]{ID: req.ID, Result: &result})
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	go socket.ReadLoop()
}

func (s *Server) writeHTTP(w http.ResponseWriter, status int, frame *connection.RPCResponse[any]) {
	data, err := s.marshaler.Marshal(frame)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

func (h *Handler) OnOpen(socket *gws.Conn) {
	h.server.mu.Lock()
	h.server.connections[socket] = struct{}{}
	h.server.mu.Unlock()
}

func (h *Handler) OnClose(socket *gws.Conn, err error) {
	h.server.mu.Lock()
	delete(h.server.connections, socket)
	h.server.mu.Unlock()
}

func (h *Handler) OnPing(socket *gws.Conn, payload []byte) {
	if err := socket.WritePong(payload); err != nil {
		h.server.logger.Debug("failed to write pong", "error", err)
	}
}

func (h *Handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	s := h.server

	var req rpcRequest
	if err := s.unmarshaler.Unmarshal(message.Bytes(), &req); err != nil {
		h.write(socket, errorFrame(nil, constants.CodeParseError, "Parse error"))
		return
	}

	stubErr, failures := s.match(req.Method)
	for _, failure := range failures {
		if !shouldTriggerFailure(failure.Probability) {
			continue
		}
		if stop := h.applyFailure(socket, failure); stop {
			return
		}
	}
	if stubErr != nil {
		h.write(socket, &connection.RPCResponse[any]{ID: req.ID, Error: stubErr})
		return
	}

	emit := func(rec *models.Record) error {
		item, err := s.marshaler.Marshal(rec)
		if err != nil {
			return err
		}
		return h.write(socket, &connection.RPCResponse[any]{ID: req.ID, Item: item})
	}

	result, err := s.call(s.ctx, &req, emit)
	if err != nil {
		h.write(socket, &connection.RPCResponse[any]{ID: req.ID, Error: toRPCError(err)})
		return
	}
	h.write(socket, &connection.RPCResponse[any]{ID: req.ID, Result: &result})
}

func (h *Handler) write(socket *gws.Conn, frame *connection.RPCResponse[any]) error {
	data, err := h.server.marshaler.Marshal(frame)
	if err != nil {
		h.server.logger.Error("failed to encode frame", "error", err)
		return err
	}
	if err := socket.WriteMessage(gws.OpcodeBinary, data); err != nil {
		h.server.logger.Debug("failed to write frame", "error", err)
		return err
	}
	return nil
}

func (h *Handler) applyFailure(socket *gws.Conn, failure FailureConfig) bool {
	switch failure.Type {
	case FailureRequestDelay:
		sleep(h.server.ctx, randomDuration(failure.MinDelay, failure.MaxDelay))
	case FailureInvalidResponse:
		if err := socket.WriteMessage(gws.OpcodeBinary, garbage()); err != nil {
			h.server.logger.Debug("failed to write invalid response", "error", err)
		}
		return true
	case FailureDropConnection:
		_ = socket.NetConn().Close()
		return true
	case FailureWebSocketClose:
		code := failure.CloseCode
		if code == 0 {
			code = 1001
		}
		socket.WriteClose(code, []byte("failure injection"))
		return true
	}
	return false
}

func (s *Server) applyHTTPFailure(ctx context.Context, w http.ResponseWriter, failure FailureConfig) bool {
	switch failure.Type {
	case FailureRequestDelay:
		sleep(ctx, randomDuration(failure.MinDelay, failure.MaxDelay))
	case FailureInvalidResponse:
		w.Header().Set("Content-Type", "application/cbor")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(garbage())
		return true
	case FailureDropConnection, FailureWebSocketClose:
		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return true
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			s.logger.Debug("failed to hijack connection", "error", err)
			return true
		}
		_ = conn.Close()
		return true
	}
	return false
}

// match returns the stubbed error and the failures to apply for method.
func (s *Server) match(method string) (*connection.RPCError, []FailureConfig) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failures := append([]FailureConfig(nil), s.globalFailures...)
	for _, stub := range s.stubResponses {
		if string(stub.Method) == method {
			return stub.Error, append(failures, stub.Failures...)
		}
	}
	return nil, failures
}

// call runs req against the store.
//
// When emit is nil, query records are returned in the result's Records.
// Otherwise each record is passed to emit and only the cursor is returned.
func (s *Server) call(ctx context.Context, req *rpcRequest, emit func(*models.Record) error) (any, error) {
	s.logger.Debug("rpc", "method", req.Method, "id", req.ID)

	switch connection.RPCFunction(req.Method) {
	case connection.Zone:
		return s.store.DefaultZone(ctx)

	case connection.Save:
		rec, err := decodeParam[models.Record](s.unmarshaler, req, 0)
		if err != nil {
			return nil, err
		}
		return s.store.Save(ctx, rec)

	case connection.Query:
		q, err := decodeParam[query.Query](s.unmarshaler, req, 0)
		if err != nil {
			return nil, err
		}

		var (
			records []*models.Record
			emitErr error
		)
		cursor, err := s.store.Query(ctx, q, func(rec *models.Record) {
			if emit == nil {
				records = append(records, rec)
				return
			}
			if emitErr == nil {
				emitErr = emit(rec)
			}
		})
		if err != nil {
			return nil, err
		}
		if emitErr != nil {
			return nil, emitErr
		}
		return connection.QueryResult{Records: records, Cursor: cursor}, nil

	default:
		return nil, &connection.RPCError{
			Code:    constants.CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		}
	}
}

func decodeParam[T any](u codec.Unmarshaler, req *rpcRequest, i int) (*T, error) {
	if len(req.Params) <= i {
		return nil, &connection.RPCError{
			Code:    constants.CodeInvalidParams,
			Message: fmt.Sprintf("%s expects at least %d params", req.Method, i+1),
		}
	}

	var v T
	if err := u.Unmarshal(req.Params[i], &v); err != nil {
		return nil, &connection.RPCError{
			Code:    constants.CodeInvalidParams,
			Message: fmt.Sprintf("invalid param %d for %s: %v", i, req.Method, err),
		}
	}
	return &v, nil
}

func toRPCError(err error) *connection.RPCError {
	var rpcErr *connection.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &connection.RPCError{
		Code:    constants.CodeInternalError,
		Message: err.Error(),
	}
}

func errorFrame(id any, code int, message string) *connection.RPCResponse[any] {
	return &connection.RPCResponse[any]{
		ID: id,
		Error: &connection.RPCError{
			Code:    code,
			Message: message,
		},
	}
}

func garbage() []byte {
	data := make([]byte, 100)
	for i := range data {
		//nolint:gosec // test data
		data[i] = byte(rand.IntN(256))
	}
	// 0xff is a break code outside of an indefinite-length item, so this never decodes
	data[0] = 0xff
	return data
}

func shouldTriggerFailure(probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1 {
		return true
	}
	//nolint:gosec // failure injection does not need crypto randomness
	return rand.Float64() < probability
}

func randomDuration(dMin, dMax time.Duration) time.Duration {
	if dMin >= dMax {
		return dMin
	}
	//nolint:gosec // failure injection does not need crypto randomness
	return dMin + rand.N(dMax-dMin)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
