package client

import (
	"fmt"
	"reflect"
	"strings"

	"remotecmd/command"
	"remotecmd/value"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Bind builds a local proxy: it fills the exported func-typed fields of
// target — a pointer to a struct — with closures forwarding to remote
// commands under prefix.
//
// Field naming mirrors instance registration: field Foo binds to command
// "{prefix}foo"; GetFoo and SetFoo bind to the property accessors
// "get_{prefix}foo" and "set_{prefix}foo". A `cmd:"name"` tag overrides the
// derived name with the full command name; `cmd:"-"` skips the field.
//
// The func signature is the declared arity: the compiler enforces argument
// count, and argument values are validated and converted locally before any
// network I/O. The last return value must be error; an optional first return
// receives the call's payload. Multiple structs with distinct prefixes may
// be bound to the same client.
func (c *Client) Bind(target any, prefix string) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("client: bind target must be a pointer to a struct, got %T", target)
	}
	prefix = strings.ToLower(prefix)
	elem := rv.Elem()
	st := elem.Type()

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() || f.Tag.Get("cmd") == "-" {
			continue
		}
		if f.Type.Kind() != reflect.Func {
			return fmt.Errorf("client: bind field %s.%s must have a func type", st.Name(), f.Name)
		}
		stub, err := c.makeStub(proxyCommandName(f, prefix), f.Type)
		if err != nil {
			return fmt.Errorf("client: bind field %s.%s: %w", st.Name(), f.Name, err)
		}
		elem.Field(i).Set(stub)
	}
	return nil
}

func proxyCommandName(f reflect.StructField, prefix string) string {
	if tag := f.Tag.Get("cmd"); tag != "" {
		return strings.ToLower(tag)
	}
	if rest, ok := strings.CutPrefix(f.Name, "Get"); ok && rest != "" {
		return "get_" + prefix + command.SnakeCase(rest)
	}
	if rest, ok := strings.CutPrefix(f.Name, "Set"); ok && rest != "" {
		return "set_" + prefix + command.SnakeCase(rest)
	}
	return prefix + command.SnakeCase(f.Name)
}

func (c *Client) makeStub(name string, ft reflect.Type) (reflect.Value, error) {
	if ft.IsVariadic() {
		return reflect.Value{}, fmt.Errorf("variadic funcs are not supported")
	}
	numOut := ft.NumOut()
	if numOut == 0 || ft.Out(numOut-1) != errType {
		return reflect.Value{}, fmt.Errorf("last return value must be error")
	}
	if numOut > 2 {
		return reflect.Value{}, fmt.Errorf("at most two return values are supported")
	}
	hasResult := numOut == 2

	return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}
		out := make([]reflect.Value, numOut)
		for i := range out {
			out[i] = reflect.Zero(ft.Out(i))
		}

		payload, err := c.CallKw(name, args, nil)
		if err != nil {
			out[numOut-1] = errValue(err)
			return out
		}
		if hasResult {
			result, err := value.Coerce(payload, ft.Out(0))
			if err != nil {
				out[numOut-1] = errValue(fmt.Errorf("client: %s result: %w", name, err))
				return out
			}
			out[0] = result
		}
		return out
	}), nil
}

func errValue(err error) reflect.Value {
	v := reflect.New(errType).Elem()
	v.Set(reflect.ValueOf(err))
	return v
}
