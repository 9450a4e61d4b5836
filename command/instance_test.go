package command

import (
	"errors"
	"testing"

	"remotecmd/value"
)

// pump is the registration fixture: three methods, a writable property, a
// read-only property, and a skipped field.
type pump struct {
	Range   int
	Serial  string `cmd:"readonly"`
	Scratch int    `cmd:"-"`

	running bool
}

func (p *pump) Start() { p.running = true }
func (p *pump) Stop() { p.running = false }

func (p *pump) Status() bool { return p.running }

func (p *pump) CommandDocs() map[string]string {
	return map[string]string{
		"start": "Starts the pump.",
		"range": "Measurement range selector.",
	}
}

func TestRegisterInstanceEntries(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterInstance(&pump{Serial: "PMP-0001"}, "pump_"); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}
	// start, stop, status, get_range, set_range, get_serial
	if tbl.Len() != 6 {
		t.Errorf("Len() = %d, want 6", tbl.Len())
	}
	for _, name := range []string{
		"pump_start", "pump_stop", "pump_status",
		"get_pump_range", "set_pump_range", "get_pump_serial",
	} {
		if _, ok := tbl.Lookup(name); !ok {
			t.Errorf("Lookup(%q) failed", name)
		}
	}
	for _, name := range []string{"set_pump_serial", "get_pump_scratch", "pump_command_docs"} {
		if _, ok := tbl.Lookup(name); ok {
			t.Errorf("Lookup(%q) unexpectedly succeeded", name)
		}
	}
}

func TestInstanceMethodsAndProperties(t *testing.T) {
	p := &pump{Range: 1, Serial: "PMP-0001"}
	tbl := NewTable()
	if err := tbl.RegisterInstance(p, "pump_"); err != nil {
		t.Fatal(err)
	}
	invoke := func(name string, args ...any) (any, error) {
		t.Helper()
		e, ok := tbl.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
		return e.Invoke(args, nil)
	}

	if _, err := invoke("pump_start"); err != nil {
		t.Fatalf("pump_start failed: %v", err)
	}
	if got, err := invoke("pump_status"); err != nil || got != true {
		t.Errorf("pump_status = %v, %v; want true", got, err)
	}

	if _, err := invoke("set_pump_range", int64(3)); err != nil {
		t.Fatalf("set_pump_range failed: %v", err)
	}
	if got, err := invoke("get_pump_range"); err != nil || got != 3 {
		t.Errorf("get_pump_range = %v, %v; want 3", got, err)
	}
	if p.Range != 3 {
		t.Errorf("field not updated: %d", p.Range)
	}

	if got, err := invoke("get_pump_serial"); err != nil || got != "PMP-0001" {
		t.Errorf("get_pump_serial = %v, %v", got, err)
	}
}

func TestInstanceArgumentErrors(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterInstance(&pump{}, "pump_"); err != nil {
		t.Fatal(err)
	}
	assertArgErr := func(name string, args []any, kwargs map[string]any) {
		t.Helper()
		e, _ := tbl.Lookup(name)
		_, err := e.Invoke(args, kwargs)
		var ve *value.Error
		if !errors.As(err, &ve) || ve.Kind != "argument" {
			t.Errorf("%s: got %v, want argument error", name, err)
		}
	}

	// arity, positional-only methods, getter/setter shapes, type mismatch
	assertArgErr("pump_start", []any{int64(1)}, nil)
	assertArgErr("pump_start", nil, map[string]any{"x": int64(1)})
	assertArgErr("get_pump_range", []any{int64(1)}, nil)
	assertArgErr("set_pump_range", nil, nil)
	assertArgErr("set_pump_range", []any{"three"}, nil)
}

func TestInstanceDocs(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterInstance(&pump{}, "pump_"); err != nil {
		t.Fatal(err)
	}
	if doc, _ := tbl.Doc("pump_start"); doc != "Starts the pump." {
		t.Errorf("got %q", doc)
	}
	if doc, _ := tbl.Doc("get_pump_range"); doc != "Measurement range selector." {
		t.Errorf("got %q", doc)
	}
	if doc, _ := tbl.Doc("pump_stop"); doc != "No help available." {
		t.Errorf("got %q", doc)
	}
}

func TestRegisterInstanceErrors(t *testing.T) {
	tbl := NewTable()
	if err := tbl.RegisterInstance(pump{}, "pump_"); !errors.Is(err, ErrConfig) {
		t.Errorf("value receiver: got %v, want ErrConfig", err)
	}
	if err := tbl.RegisterInstance(&pump{}, "pump_"); err != nil {
		t.Fatal(err)
	}
	// Same prefix registers the same names again.
	if err := tbl.RegisterInstance(&pump{}, "pump_"); !errors.Is(err, ErrConfig) {
		t.Errorf("prefix collision: got %v, want ErrConfig", err)
	}
	// A distinct prefix keeps the names apart.
	if err := tbl.RegisterInstance(&pump{}, "spare_"); err != nil {
		t.Errorf("distinct prefix failed: %v", err)
	}
}
