// Package value defines the closed set of values that may cross the wire
// and their binary codec.
//
// The representable set is: nil, bool, int64, float64, string, []byte,
// []any (ordered sequence), map[string]any (string-keyed mapping), and
// *Error (a tagged error payload). Normalize widens arbitrary Go inputs
// (any integer width, float32, typed slices and maps, error values) into
// this set; everything else is rejected with ErrCodec.
package value

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrCodec marks malformed or unrepresentable data. This is always a local,
// non-retryable condition.
var ErrCodec = errors.New("value: malformed data")

// Error is the distinguished error payload carried inside ERROR responses.
// Kind is a short machine-readable tag ("application", "command",
// "argument"), Message the human-readable description.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return e.Kind + ": " + e.Message
}

// Normalize converts v into the closed wire set, recursing into sequences
// and mappings. Named scalar types, all integer widths and typed slices and
// maps are widened via reflection; values implementing error become *Error
// with kind "application".
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64, string:
		return x, nil
	case []byte:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return uintToInt64(uint64(x))
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case uint8:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case *Error:
		return x, nil
	case Error:
		return &x, nil
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			n, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			n, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}

	if err, ok := v.(error); ok {
		return &Error{Kind: "application", Message: err.Error()}, nil
	}
	return normalizeReflect(v)
}

func normalizeReflect(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintToInt64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), rv.Bytes()...), nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			n, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map keys must be strings, got %s", ErrCodec, rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			n, err := Normalize(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = n
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return Normalize(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: cannot represent %T on the wire", ErrCodec, v)
}

func uintToInt64(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: unsigned value %d overflows int64", ErrCodec, u)
	}
	return int64(u), nil
}

// Coerce converts a decoded wire value to the given Go type. It is used
// when binding decoded arguments to registered function parameters and when
// filling proxy results. Widening is permissive (int64 fits any integer or
// float type that can hold it); narrowing that would lose information fails.
func Coerce(v any, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		out := reflect.New(t).Elem()
		if v != nil {
			out.Set(reflect.ValueOf(v))
		}
		return out, nil
	}
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}

	switch x := v.(type) {
	case bool:
		if t.Kind() == reflect.Bool {
			return reflect.ValueOf(x).Convert(t), nil
		}
	case int64:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if reflect.Zero(t).OverflowInt(x) {
				return reflect.Value{}, fmt.Errorf("value %d overflows %s", x, t)
			}
			return reflect.ValueOf(x).Convert(t), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if x < 0 || reflect.Zero(t).OverflowUint(uint64(x)) {
				return reflect.Value{}, fmt.Errorf("value %d overflows %s", x, t)
			}
			return reflect.ValueOf(x).Convert(t), nil
		case reflect.Float32, reflect.Float64:
			return reflect.ValueOf(x).Convert(t), nil
		}
	case float64:
		switch t.Kind() {
		case reflect.Float32, reflect.Float64:
			return reflect.ValueOf(x).Convert(t), nil
		}
	case string:
		if t.Kind() == reflect.String {
			return reflect.ValueOf(x).Convert(t), nil
		}
	case []byte:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf(x).Convert(t), nil
		}
	case []any:
		if t.Kind() == reflect.Slice {
			out := reflect.MakeSlice(t, len(x), len(x))
			for i, elem := range x {
				ev, err := Coerce(elem, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	case map[string]any:
		if t.Kind() == reflect.Map && t.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(t, len(x))
			for k, elem := range x {
				ev, err := Coerce(elem, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
			}
			return out, nil
		}
	case *Error:
		if t == reflect.TypeOf((*Error)(nil)) {
			return reflect.ValueOf(x), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}
