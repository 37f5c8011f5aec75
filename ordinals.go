package savestate

import "fmt"

// OrdinalError reports an enumerated value that has no ordinal, or an ordinal
// that has no value. On restore it means the stored state is corrupt.
type OrdinalError struct {
	Key     string
	Ordinal int
	Len     int
	Value   any
}

func (e *OrdinalError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("savestate: %s: value %v is not a declared constant", e.Key, e.Value)
	}
	return fmt.Sprintf("savestate: %s: ordinal %d out of range [0, %d)", e.Key, e.Ordinal, e.Len)
}

// Ordinal returns the index of v in values, the declared constants of an
// enumerated type in declaration order.
func Ordinal[E comparable](key string, values []E, v E) (int, error) {
	for i, c := range values {
		if c == v {
			return i, nil
		}
	}
	return -1, &OrdinalError{Key: key, Ordinal: -1, Len: len(values), Value: v}
}

// ValueOf returns the constant at the given ordinal. An ordinal outside of
// values is an error; it is never clamped.
func ValueOf[E any](key string, values []E, ordinal int) (E, error) {
	if ordinal < 0 || ordinal >= len(values) {
		var zero E
		return zero, &OrdinalError{Key: key, Ordinal: ordinal, Len: len(values)}
	}
	return values[ordinal], nil
}
