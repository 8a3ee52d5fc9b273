// Package typebridge converts values between declared port types.
//
// Port types are plain reflect.Type values. A value whose runtime type is
// assignable to the port type passes unchanged; a fixed set of implicit
// conversions covers the remaining well-known pairs (integers to big
// integers and back, bytes and streams to strings, scalars to text).
// Everything else is rejected, and the compatibility checker refuses to wire
// such ports in the first place.
package typebridge

import (
	"bytes"
	"io"
	"math/big"
	"reflect"
)

// MaxStreamConversionLength caps how many bytes a stream to string
// conversion materializes. Longer content is truncated without error.
const MaxStreamConversionLength = 1 << 20

// Well-known port types.
var (
	Any    = reflect.TypeFor[any]()
	Bool   = reflect.TypeFor[bool]()
	Int32  = reflect.TypeFor[int32]()
	Int64  = reflect.TypeFor[int64]()
	BigInt = reflect.TypeFor[*big.Int]()
	Bytes  = reflect.TypeFor[[]byte]()
	String = reflect.TypeFor[string]()
	Stream = reflect.TypeFor[ByteStream]()
)

// ByteStream is a replayable handle on a sequence of bytes. Every consumer
// opens its own reader, so one stream value can fan out to many ports.
type ByteStream interface {
	NewReader() io.Reader
	Len() int64
}

// MemoryStream is a ByteStream backed by an in-memory buffer.
type MemoryStream struct {
	data []byte
}

// NewMemoryStream copies b into a new stream.
func NewMemoryStream(b []byte) *MemoryStream {
	return &MemoryStream{data: bytes.Clone(b)}
}

// NewReader returns an independent reader positioned at the start.
func (s *MemoryStream) NewReader() io.Reader {
	return bytes.NewReader(s.data)
}

// Len returns the stream length in bytes.
func (s *MemoryStream) Len() int64 {
	return int64(len(s.data))
}

// Name returns a short human name for a port type, used in logs and in the
// discover listing.
func Name(t reflect.Type) string {
	switch t {
	case nil:
		return "<nil>"
	case Any:
		return "any"
	case BigInt:
		return "bigint"
	case Bytes:
		return "bytes"
	case Stream:
		return "stream"
	}
	return t.String()
}
