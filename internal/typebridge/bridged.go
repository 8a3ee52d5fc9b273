package typebridge

import "reflect"

// Bridged reports whether a value declared as from can reach a port declared
// as to through one of the implicit conversions (not through plain
// assignability).
func Bridged(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}
	switch {
	case (from == Int32 || from == Int64) && to == BigInt:
		return true
	case from == BigInt && (to == Int32 || to == Int64):
		return true
	case from == Bytes && to == String, from == String && to == Bytes:
		return true
	case isStream(from) && to == String, from == String && to == Stream:
		return true
	case to == String && (from == Bool || from == Int32 || from == Int64 || from == BigInt):
		return true
	}
	return false
}

// Related reports whether the declared types are identical, universal, or
// one is assignable to the other.
func Related(a, b reflect.Type) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b || a == Any || b == Any {
		return true
	}
	return a.AssignableTo(b) || b.AssignableTo(a)
}

func isStream(t reflect.Type) bool {
	return t == Stream || (t.Kind() != reflect.Interface && t.Implements(Stream))
}
