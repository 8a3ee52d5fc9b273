package typebridge

import (
	"fmt"
	"reflect"
)

// CoercionOverflowError reports a value that does not fit the narrower
// target type.
type CoercionOverflowError struct {
	Value  string
	Target reflect.Type
}

func (e *CoercionOverflowError) Error() string {
	return fmt.Sprintf("value %s overflows %s", e.Value, Name(e.Target))
}

// UnsupportedCoercionError reports a runtime value for which no conversion
// rule to the target type exists.
type UnsupportedCoercionError struct {
	From   reflect.Type
	Target reflect.Type
}

func (e *UnsupportedCoercionError) Error() string {
	return fmt.Sprintf("no conversion from %s to %s", Name(e.From), Name(e.Target))
}
