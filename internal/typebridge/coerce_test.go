package typebridge

import (
	"io"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		value  any
		target reflect.Type
		want   any
	}{
		{name: "identity string", value: "abc", target: String, want: "abc"},
		{name: "anything into any", value: int32(5), target: Any, want: int32(5)},
		{name: "int32 to bigint", value: int32(42), target: BigInt, want: big.NewInt(42)},
		{name: "int64 to bigint", value: int64(-9), target: BigInt, want: big.NewInt(-9)},
		{name: "bigint to int32", value: big.NewInt(-2147483648), target: Int32, want: int32(-2147483648)},
		{name: "bigint to int64", value: big.NewInt(1 << 40), target: Int64, want: int64(1 << 40)},
		{name: "bytes to string", value: []byte("héllo"), target: String, want: "héllo"},
		{name: "invalid utf8 is replaced", value: []byte{0x61, 0xff}, target: String, want: "a\uFFFD"},
		{name: "string to bytes", value: "hi", target: Bytes, want: []byte("hi")},
		{name: "bool to string", value: true, target: String, want: "true"},
		{name: "int32 to string", value: int32(-7), target: String, want: "-7"},
		{name: "int64 to string", value: int64(123456789012), target: String, want: "123456789012"},
		{name: "bigint to string", value: new(big.Int).Lsh(big.NewInt(1), 70), target: String, want: "1180591620717411303424"},
		{name: "stream to string", value: NewMemoryStream([]byte("stream")), target: String, want: "stream"},
		{name: "nil into pointer type", value: nil, target: BigInt, want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Coerce(tc.value, tc.target)
			require.NoError(t, err)
			if wantBig, ok := tc.want.(*big.Int); ok {
				gotBig, ok := got.(*big.Int)
				require.True(t, ok, "expected *big.Int, got %T", got)
				assert.Zero(t, wantBig.Cmp(gotBig))
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoerce_Overflow(t *testing.T) {
	t.Parallel()

	twoPow40 := new(big.Int).Lsh(big.NewInt(1), 40)
	_, err := Coerce(twoPow40, Int32)

	var overflowErr *CoercionOverflowError
	require.ErrorAs(t, err, &overflowErr)
	assert.Equal(t, "1099511627776", overflowErr.Value)
	assert.Equal(t, Int32, overflowErr.Target)

	twoPow70 := new(big.Int).Lsh(big.NewInt(1), 70)
	_, err = Coerce(twoPow70, Int64)
	require.ErrorAs(t, err, &overflowErr)
}

func TestCoerce_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := Coerce(3.5, Int32)
	var unsupported *UnsupportedCoercionError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "float64")

	_, err = Coerce(nil, Int32)
	require.ErrorAs(t, err, &unsupported)
}

func TestCoerce_StreamTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", MaxStreamConversionLength+10)

	got, err := Coerce(long, Stream)
	require.NoError(t, err)
	stream := got.(ByteStream)
	assert.EqualValues(t, MaxStreamConversionLength, stream.Len())

	back, err := Coerce(NewMemoryStream([]byte(long)), String)
	require.NoError(t, err)
	assert.Len(t, back.(string), MaxStreamConversionLength)
}

func TestMemoryStream_IndependentReaders(t *testing.T) {
	t.Parallel()

	s := NewMemoryStream([]byte("abc"))
	first, err := io.ReadAll(s.NewReader())
	require.NoError(t, err)
	second, err := io.ReadAll(s.NewReader())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBridged(t *testing.T) {
	t.Parallel()

	streamImpl := reflect.TypeFor[*MemoryStream]()

	yes := [][2]reflect.Type{
		{Int32, BigInt}, {Int64, BigInt}, {BigInt, Int32}, {BigInt, Int64},
		{Bytes, String}, {String, Bytes}, {Stream, String}, {streamImpl, String},
		{String, Stream}, {Bool, String}, {Int32, String}, {Int64, String}, {BigInt, String},
	}
	for _, pair := range yes {
		assert.True(t, Bridged(pair[0], pair[1]), "%s -> %s", Name(pair[0]), Name(pair[1]))
	}

	no := [][2]reflect.Type{
		{String, Int32}, {Int32, Int64}, {Bool, Int32}, {Bytes, Stream}, {String, String}, {nil, String},
	}
	for _, pair := range no {
		assert.False(t, Bridged(pair[0], pair[1]), "%s -> %s", Name(pair[0]), Name(pair[1]))
	}
}

func TestRelated(t *testing.T) {
	t.Parallel()

	assert.True(t, Related(String, String))
	assert.True(t, Related(Any, Int32))
	assert.True(t, Related(BigInt, Any))
	assert.True(t, Related(reflect.TypeFor[*MemoryStream](), Stream))
	assert.True(t, Related(Stream, reflect.TypeFor[*MemoryStream]()))
	assert.False(t, Related(Int32, Int64))
}
