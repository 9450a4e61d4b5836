package client

import (
	"errors"
	"strings"
	"testing"
)

// pumpProxy mirrors the pump fixture's remote surface.
type pumpProxy struct {
	Start     func() error
	Stop      func() error
	Status    func() (string, error)
	GetRange  func() (int, error)
	SetRange  func(int) error
	GetSerial func() (string, error)

	Label string `cmd:"-"`
}

func TestBindProxy(t *testing.T) {
	srv := startServer(t, 0, "")
	c := newClient(t, srv.Port(), "")

	var p pumpProxy
	if err := c.Bind(&p, "pump_"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	if err := p.SetRange(3); err != nil {
		t.Fatalf("SetRange failed: %v", err)
	}
	got, err := p.GetRange()
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if got != 3 {
		t.Errorf("GetRange = %d, want 3", got)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status, err := p.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != "running" {
		t.Errorf("Status = %q, want running", status)
	}

	serial, err := p.GetSerial()
	if err != nil {
		t.Fatalf("GetSerial failed: %v", err)
	}
	if serial != "PMP-0001" {
		t.Errorf("GetSerial = %q", serial)
	}
}

func TestBindSurfacesRemoteErrors(t *testing.T) {
	srv := startServer(t, 0, "")
	c := newClient(t, srv.Port(), "")

	var m struct {
		Missing func() error
	}
	if err := c.Bind(&m, "pump_"); err != nil {
		t.Fatal(err)
	}
	err := m.Missing()
	var re *RemoteError
	if !errors.As(err, &re) || re.Kind != "command" {
		t.Errorf("got %v, want command error", err)
	}

	// A readonly property has no setter.
	var s struct {
		SetSerial func(string) error
	}
	if err := c.Bind(&s, "pump_"); err != nil {
		t.Fatal(err)
	}
	if !errors.As(s.SetSerial("X"), &re) || re.Kind != "command" {
		t.Error("setting a readonly property did not fail")
	}
}

func TestBindTagOverride(t *testing.T) {
	srv := startServer(t, 0, "")
	c := newClient(t, srv.Port(), "")

	var p struct {
		Greet func() (string, error) `cmd:"hello"`
	}
	if err := c.Bind(&p, ""); err != nil {
		t.Fatal(err)
	}
	got, err := p.Greet()
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello world!" {
		t.Errorf("got %q", got)
	}
}

func TestBindRejectsBadTargets(t *testing.T) {
	c := newClient(t, 1, "")

	if err := c.Bind(struct{}{}, ""); err == nil {
		t.Error("non-pointer target accepted")
	}

	var notFunc struct{ Name string }
	if err := c.Bind(&notFunc, ""); err == nil || !strings.Contains(err.Error(), "func type") {
		t.Errorf("non-func field: got %v", err)
	}

	var noErr struct{ Ping func() }
	if err := c.Bind(&noErr, ""); err == nil || !strings.Contains(err.Error(), "error") {
		t.Errorf("missing error return: got %v", err)
	}

	var variadic struct{ Sum func(...int) error }
	if err := c.Bind(&variadic, ""); err == nil {
		t.Error("variadic field accepted")
	}

	var threeOut struct {
		Pair func() (int, int, error)
	}
	if err := c.Bind(&threeOut, ""); err == nil {
		t.Error("three return values accepted")
	}
}
