package models

import (
	"io"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/sharednotes/sharednotes.go/internal/codec"
)

const (
	// TagRecordID marks an encoded RecordID.
	TagRecordID uint64 = 8
)

var (
	encModeOnce sync.Once
	encMode     cbor.EncMode

	decModeOnce sync.Once
	decMode     cbor.DecMode
)

type CborMarshaler struct {
}

func (c CborMarshaler) Marshal(v any) ([]byte, error) {
	return getCborEncoder().Marshal(v)
}

func (c CborMarshaler) NewEncoder(w io.Writer) codec.Encoder {
	return getCborEncoder().NewEncoder(w)
}

type CborUnmarshaler struct {
}

func (c CborUnmarshaler) Unmarshal(data []byte, dst any) error {
	return getCborDecoder().Unmarshal(data, dst)
}

func (c CborUnmarshaler) NewDecoder(r io.Reader) codec.Decoder {
	return getCborDecoder().NewDecoder(r)
}

func getCborEncoder() cbor.EncMode {
	encModeOnce.Do(func() {
		em, err := cbor.EncOptions{
			Time:    cbor.TimeRFC3339Nano,
			TimeTag: cbor.EncTagRequired,
			Sort:    cbor.SortCanonical,
		}.EncMode()
		if err != nil {
			panic(err)
		}
		encMode = em
	})

	return encMode
}

func getCborDecoder() cbor.DecMode {
	decModeOnce.Do(func() {
		dm, err := cbor.DecOptions{
			TimeTagToAny:   cbor.TimeTagToTime,
			DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		}.DecMode()
		if err != nil {
			panic(err)
		}
		decMode = dm
	})

	return decMode
}
