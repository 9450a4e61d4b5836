package value

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    any
	}{
		{"nil", nil},
		{"bool", true},
		{"int", int64(-42)},
		{"float", 3.14159},
		{"negzero", math.Copysign(0, -1)},
		{"string", "héllo wörld"},
		{"bytes", []byte{0x00, 0xff, 0x7f}},
		{"empty_list", []any{}},
		{"empty_map", map[string]any{}},
		{"error", &Error{Kind: "application", Message: "boom"}},
		{"nested", []any{
			int64(1),
			"two",
			[]any{true, nil, 2.5},
			map[string]any{
				"inner": []any{[]byte("raw"), int64(9)},
				"err":   &Error{Kind: "command", Message: "nope"},
			},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(tc.v)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			got, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(got, tc.v) {
				t.Errorf("round trip mismatch: got %#v, want %#v", got, tc.v)
			}
		})
	}
}

func TestNormalizeWidening(t *testing.T) {
	type level int
	cases := []struct {
		in   any
		want any
	}{
		{int(7), int64(7)},
		{int8(-3), int64(-3)},
		{uint32(9), int64(9)},
		{float32(0.5), float64(0.5)},
		{level(2), int64(2)},
		{[]int{1, 2}, []any{int64(1), int64(2)}},
		{map[string]int{"a": 1}, map[string]any{"a": int64(1)}},
		{errors.New("bad"), &Error{Kind: "application", Message: "bad"}},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%#v) failed: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Normalize(%#v) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRejectsUnrepresentable(t *testing.T) {
	cases := []any{
		make(chan int),
		struct{ X int }{1},
		map[int]string{1: "a"},
		uint64(math.MaxUint64),
	}
	for _, in := range cases {
		if _, err := Normalize(in); !errors.Is(err, ErrCodec) {
			t.Errorf("Normalize(%#v): got %v, want ErrCodec", in, err)
		}
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	valid, err := Marshal([]any{"x", int64(1)})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown_tag", []byte{0xee}},
		{"truncated_int", []byte{tagInt, 0x01}},
		{"truncated_string", []byte{tagString, 0x00, 0x00, 0x00, 0x05, 'h', 'i'}},
		{"oversized_count", []byte{tagList, 0xff, 0xff, 0xff, 0xff}},
		{"trailing", append(append([]byte{}, valid...), 0x00)},
		{"bad_bool", []byte{tagBool, 0x02}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Unmarshal(tc.data); !errors.Is(err, ErrCodec) {
				t.Errorf("got %v, want ErrCodec", err)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	intType := reflect.TypeOf(int(0))
	got, err := Coerce(int64(5), intType)
	if err != nil {
		t.Fatalf("Coerce to int failed: %v", err)
	}
	if got.Interface() != 5 {
		t.Errorf("got %v, want 5", got.Interface())
	}

	if _, err := Coerce(int64(300), reflect.TypeOf(int8(0))); err == nil {
		t.Error("expected overflow error coercing 300 to int8")
	}
	if _, err := Coerce("text", intType); err == nil {
		t.Error("expected type error coercing string to int")
	}

	anyType := reflect.TypeOf((*any)(nil)).Elem()
	got, err = Coerce(nil, anyType)
	if err != nil {
		t.Fatalf("Coerce nil to any failed: %v", err)
	}
	if got.Interface() != nil {
		t.Errorf("got %v, want nil", got.Interface())
	}

	slice, err := Coerce([]any{int64(1), int64(2)}, reflect.TypeOf([]int{}))
	if err != nil {
		t.Fatalf("Coerce to []int failed: %v", err)
	}
	if !reflect.DeepEqual(slice.Interface(), []int{1, 2}) {
		t.Errorf("got %v, want [1 2]", slice.Interface())
	}
}
