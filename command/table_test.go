package command

import (
	"errors"
	"reflect"
	"testing"
)

func TestReserved(t *testing.T) {
	for _, name := range []string{"call", "help", "close", "HELP", "Close"} {
		if !Reserved(name) {
			t.Errorf("Reserved(%q) = false, want true", name)
		}
	}
	if Reserved("hello") {
		t.Error(`Reserved("hello") = true, want false`)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterFunc(func() {}, WithName("ReadVoltage")); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"read_voltage", "READ_VOLTAGE", "Read_Voltage"} {
		if _, ok := tbl.Lookup(name); !ok {
			t.Errorf("Lookup(%q) failed", name)
		}
	}
}

func TestRegistrationCollisions(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterFunc(func() {}, WithName("status")); err != nil {
		t.Fatal(err)
	}
	if err := tbl.RegisterFunc(func() {}, WithName("status")); !errors.Is(err, ErrConfig) {
		t.Errorf("duplicate name: got %v, want ErrConfig", err)
	}
	// Collisions are case-insensitive.
	if err := tbl.RegisterFunc(func() {}, WithName("STATUS")); !errors.Is(err, ErrConfig) {
		t.Errorf("case-folded duplicate: got %v, want ErrConfig", err)
	}
	for _, name := range []string{"call", "help", "close"} {
		if err := tbl.RegisterFunc(func() {}, WithName(name)); !errors.Is(err, ErrConfig) {
			t.Errorf("reserved %q: got %v, want ErrConfig", name, err)
		}
	}
}

func TestFrozenTableRejectsRegistration(t *testing.T) {
	tbl := NewTable()
	tbl.Freeze()
	if err := tbl.RegisterFunc(func() {}, WithName("late")); !errors.Is(err, ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}
}

func TestDocDefault(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterFunc(func() {}, WithName("bare")); err != nil {
		t.Fatal(err)
	}
	if err := tbl.RegisterFunc(func() {}, WithName("documented"), WithDoc("Does a thing.")); err != nil {
		t.Fatal(err)
	}
	if doc, ok := tbl.Doc("bare"); !ok || doc != "No help available." {
		t.Errorf("got %q, %v", doc, ok)
	}
	if doc, ok := tbl.Doc("documented"); !ok || doc != "Does a thing." {
		t.Errorf("got %q, %v", doc, ok)
	}
	if _, ok := tbl.Doc("missing"); ok {
		t.Error("Doc for unregistered name reported ok")
	}
}

func TestSnakeCase(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ReadVoltage", "read_voltage"},
		{"readVoltage", "read_voltage"},
		{"HTTPMode", "http_mode"},
		{"ID", "id"},
		{"Start", "start"},
		{"already_snake", "already_snake"},
	}
	for _, tc := range cases {
		if got := SnakeCase(tc.in); got != tc.want {
			t.Errorf("SnakeCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPartition(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterFunc(func() {}, WithName("hello")); err != nil {
		t.Fatal(err)
	}
	if err := tbl.RegisterInstance(&pump{}, "pump_"); err != nil {
		t.Fatal(err)
	}
	calls, props := tbl.Partition()
	wantCalls := []string{"hello", "pump_start", "pump_status", "pump_stop"}
	wantProps := []string{"pump_range", "pump_serial"}
	if !reflect.DeepEqual(calls, wantCalls) {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}
	if !reflect.DeepEqual(props, wantProps) {
		t.Errorf("props = %v, want %v", props, wantProps)
	}
}
