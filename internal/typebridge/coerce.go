package typebridge

import (
	"io"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// Coerce converts value so that it can be assigned to a port of the target
// type. Rules are tried in a fixed priority order; the first match wins.
func Coerce(value any, target reflect.Type) (any, error) {
	if value == nil {
		if nillable(target) {
			return nil, nil
		}
		return nil, &UnsupportedCoercionError{From: nil, Target: target}
	}

	from := reflect.TypeOf(value)
	if from.AssignableTo(target) {
		return value, nil
	}

	switch v := value.(type) {
	case int32:
		switch target {
		case BigInt:
			return big.NewInt(int64(v)), nil
		case String:
			return strconv.FormatInt(int64(v), 10), nil
		}
	case int64:
		switch target {
		case BigInt:
			return big.NewInt(v), nil
		case String:
			return strconv.FormatInt(v, 10), nil
		}
	case *big.Int:
		switch target {
		case Int32:
			if v == nil || !v.IsInt64() || v.Int64() < math.MinInt32 || v.Int64() > math.MaxInt32 {
				return nil, overflow(v, target)
			}
			return int32(v.Int64()), nil
		case Int64:
			if v == nil || !v.IsInt64() {
				return nil, overflow(v, target)
			}
			return v.Int64(), nil
		case String:
			return v.String(), nil
		}
	case []byte:
		if target == String {
			return strings.ToValidUTF8(string(v), "\uFFFD"), nil
		}
	case string:
		switch target {
		case Bytes:
			return []byte(v), nil
		case Stream:
			if len(v) > MaxStreamConversionLength {
				v = v[:MaxStreamConversionLength]
			}
			return NewMemoryStream([]byte(v)), nil
		}
	case ByteStream:
		if target == String {
			return streamToString(v)
		}
	case bool:
		if target == String {
			return strconv.FormatBool(v), nil
		}
	}

	return nil, &UnsupportedCoercionError{From: from, Target: target}
}

func streamToString(s ByteStream) (string, error) {
	b, err := io.ReadAll(io.LimitReader(s.NewReader(), MaxStreamConversionLength))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "\uFFFD"), nil
}

func overflow(v *big.Int, target reflect.Type) error {
	text := "<nil>"
	if v != nil {
		text = v.String()
	}
	return &CoercionOverflowError{Value: text, Target: target}
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return true
	}
	return false
}
