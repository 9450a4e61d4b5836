// Package command builds the command table: the immutable mapping from
// command name to invocable entry that the server dispatches against.
//
// A table is populated once at server construction from registered plain
// functions and stateful instances, and frozen before the first connection
// is accepted. Duplicate and reserved names fail fast at registration —
// name collisions are a configuration-time fatal error, never a runtime one.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConfig marks an invalid registration: a duplicate or reserved command
// name, or a registrant shape that cannot be exposed.
var ErrConfig = errors.New("command: invalid registration")

// Kind classifies what backs an entry.
type Kind int

const (
	KindFunction Kind = iota
	KindGetter
	KindSetter
)

// Func is the invocation signature shared by every entry.
type Func func(args []any, kwargs map[string]any) (any, error)

// Entry is one invocable command plus its metadata.
type Entry struct {
	Name   string
	Doc    string
	Kind   Kind
	Invoke Func
}

// reserved names belong to the server's built-in handlers and may never be
// redefined by registrants.
var reserved = map[string]bool{
	"call":  true,
	"help":  true,
	"close": true,
}

// Reserved reports whether name is one of the built-in command names.
func Reserved(name string) bool {
	return reserved[strings.ToLower(name)]
}

// Table maps command names to entries. Names are stored and looked up
// lowercase.
type Table struct {
	entries map[string]*Entry
	props   map[string]bool // bare property names, for help partitioning
	frozen  bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]*Entry),
		props:   make(map[string]bool),
	}
}

func (t *Table) add(e *Entry) error {
	if t.frozen {
		return fmt.Errorf("%w: table is immutable once the server runs", ErrConfig)
	}
	name := strings.ToLower(e.Name)
	if name == "" {
		return fmt.Errorf("%w: empty command name", ErrConfig)
	}
	if reserved[name] {
		return fmt.Errorf("%w: %q is a reserved command name", ErrConfig, name)
	}
	if _, ok := t.entries[name]; ok {
		return fmt.Errorf("%w: command %q already registered", ErrConfig, name)
	}
	e.Name = name
	t.entries[name] = e
	return nil
}

// Lookup finds the entry for name. Lookup is case-insensitive.
func (t *Table) Lookup(name string) (*Entry, bool) {
	e, ok := t.entries[strings.ToLower(name)]
	return e, ok
}

// Freeze marks the table immutable. The server calls this when run begins.
func (t *Table) Freeze() {
	t.frozen = true
}

// Len returns the number of registered entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Partition splits the registered names into calls and properties, folding
// get_x/set_x accessor pairs into the bare property name x.
func (t *Table) Partition() (calls, props []string) {
	for name := range t.entries {
		if bare, ok := strings.CutPrefix(name, "get_"); ok && t.props[bare] {
			continue
		}
		if bare, ok := strings.CutPrefix(name, "set_"); ok && t.props[bare] {
			continue
		}
		calls = append(calls, name)
	}
	for p := range t.props {
		props = append(props, p)
	}
	sort.Strings(calls)
	sort.Strings(props)
	return calls, props
}

// Doc returns the documentation string for name.
func (t *Table) Doc(name string) (string, bool) {
	e, ok := t.entries[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	if e.Doc == "" {
		return "No help available.", true
	}
	return e.Doc, true
}
