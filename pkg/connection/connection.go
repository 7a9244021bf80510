// Package connection defines how sharednotes talks to a remote record store:
// the RPC message model, the Connection contract shared by the HTTP and
// WebSocket transports, and the bookkeeping those transports share.
package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/sharednotes/sharednotes.go/internal/codec"
	"github.com/sharednotes/sharednotes.go/pkg/constants"
)

type Connection interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Send issues one RPC and waits for its final response.
	// A store-reported error is returned as *RPCError.
	Send(ctx context.Context, method string, params ...any) (*RPCResponse[cbor.RawMessage], error)
	GetUnmarshaler() codec.Unmarshaler
}

// Streamer is implemented by connections that deliver results item by item.
//
// onItem is called for every item frame, in arrival order, before Stream
// returns the final response. An error from onItem aborts the call.
type Streamer interface {
	Stream(ctx context.Context, onItem func(item cbor.RawMessage) error, method string, params ...any) (*RPCResponse[cbor.RawMessage], error)
}

// Toolkit routes frames read from a multiplexed connection to the request waiting for them.
type Toolkit struct {
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler

	responseChannels     map[string]*ResponseChannel
	responseChannelsLock sync.RWMutex
}

// ResponseChannel receives every frame for one request ID until it is removed.
type ResponseChannel struct {
	Frames chan RPCResponse[cbor.RawMessage]
	done   chan struct{}
}

func NewToolkit(baseURL string, marshaler codec.Marshaler, unmarshaler codec.Unmarshaler) Toolkit {
	return Toolkit{
		BaseURL:          baseURL,
		Marshaler:        marshaler,
		Unmarshaler:      unmarshaler,
		responseChannels: make(map[string]*ResponseChannel),
	}
}

func (t *Toolkit) CreateResponseChannel(id string) (*ResponseChannel, error) {
	t.responseChannelsLock.Lock()
	defer t.responseChannelsLock.Unlock()

	if t.responseChannels == nil {
		t.responseChannels = make(map[string]*ResponseChannel)
	}
	if _, ok := t.responseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	ch := &ResponseChannel{
		Frames: make(chan RPCResponse[cbor.RawMessage], 16),
		done:   make(chan struct{}),
	}
	t.responseChannels[id] = ch

	return ch, nil
}

func (t *Toolkit) RemoveResponseChannel(id string) {
	t.responseChannelsLock.Lock()
	defer t.responseChannelsLock.Unlock()

	if ch, ok := t.responseChannels[id]; ok {
		close(ch.done)
		delete(t.responseChannels, id)
	}
}

// Deliver hands frame to the request it answers.
// It blocks until the request reads it or is removed, and reports false if
// no request with that ID is waiting.
func (t *Toolkit) Deliver(id string, frame RPCResponse[cbor.RawMessage]) bool {
	t.responseChannelsLock.RLock()
	ch, ok := t.responseChannels[id]
	t.responseChannelsLock.RUnlock()
	if !ok {
		return false
	}

	select {
	case ch.Frames <- frame:
		return true
	case <-ch.done:
		return false
	}
}

// PreConnectionChecks validates the settings every transport needs.
func (t *Toolkit) PreConnectionChecks() error {
	if t.BaseURL == "" {
		return constants.ErrNoBaseURL
	}

	if t.Marshaler == nil {
		return constants.ErrNoMarshaler
	}

	if t.Unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}

	return nil
}

// Await reads frames from ch until the final response arrives, passing every
// item frame to onItem, or dropping it when onItem is nil.
//
// It gives up when ctx is done or when closed is closed, returning closeErr().
func Await(
	ctx context.Context,
	ch *ResponseChannel,
	closed <-chan struct{},
	closeErr func() error,
	onItem func(item cbor.RawMessage) error,
) (*RPCResponse[cbor.RawMessage], error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-closed:
			return nil, closeErr()
		case res := <-ch.Frames:
			if res.IsItem() {
				if onItem == nil {
					continue
				}
				if err := onItem(res.Item); err != nil {
					return nil, err
				}
				continue
			}

			if res.Error != nil {
				return nil, res.Error
			}
			return &res, nil
		}
	}
}
