package connection

import (
	"context"
	"fmt"
)

// Send issues method on c and decodes the result into res.
// res may be nil when the caller only cares about the error.
func Send[Result any](c Connection, ctx context.Context, res *RPCResponse[Result], method string, params ...any) error {
	rawRes, err := c.Send(ctx, method, params...)
	if err != nil {
		return err
	}

	if res == nil {
		return nil
	}

	res.ID = rawRes.ID
	res.Error = rawRes.Error

	if rawRes.Result == nil {
		res.Result = nil
		return nil
	}

	var r Result
	if err := c.GetUnmarshaler().Unmarshal(*rawRes.Result, &r); err != nil {
		return fmt.Errorf("Send: error unmarshaling result: %w", err)
	}

	res.Result = &r

	return nil
}

// Decode unmarshals a stream item or raw result with c's unmarshaler.
func Decode[T any](c Connection, data []byte) (*T, error) {
	var v T
	if err := c.GetUnmarshaler().Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("Decode: error unmarshaling: %w", err)
	}
	return &v, nil
}
