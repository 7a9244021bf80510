package constants

import "errors"

var (
	InvalidResponse = errors.New("invalid record store response") //nolint:stylecheck

	// ErrMalformedRecord is wrapped by conversions that meet a record they cannot map to an entity.
	ErrMalformedRecord = errors.New("malformed record")
)

var (
	ErrIDInUse            = errors.New("id already in use")
	ErrTimeout            = errors.New("timeout")
	ErrNoBaseURL          = errors.New("base url not set")
	ErrNoMarshaler        = errors.New("marshaler is not set")
	ErrNoUnmarshaler      = errors.New("unmarshaler is not set")
	ErrUnsupportedScheme  = errors.New("unsupported endpoint scheme")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrMethodNotAvailable = errors.New("method not available on this connection")
)
