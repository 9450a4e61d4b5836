package command

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"remotecmd/value"
)

// Documented lets a registered instance supply documentation strings for its
// commands, keyed by bare (unprefixed) command or property name.
type Documented interface {
	CommandDocs() map[string]string
}

// RegisterInstance exposes rcvr's public surface under prefix: one command
// per exported method, named {prefix}{method}, and accessor commands per
// exported field, get_{prefix}{field} always and set_{prefix}{field} unless
// the field is tagged readonly.
//
// Field tags: `cmd:"-"` skips a field, `cmd:"readonly"` suppresses the
// setter, `cmd:"name"` overrides the derived name (combinable as
// `cmd:"name,readonly"`).
//
// Method commands take positional arguments only: Go reflection exposes no
// parameter names to bind keywords against.
func (t *Table) RegisterInstance(rcvr any, prefix string) error {
	rv := reflect.ValueOf(rcvr)
	rt := rv.Type()
	if rt.Kind() != reflect.Pointer || rt.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: registrant must be a pointer to a struct, got %T", ErrConfig, rcvr)
	}
	prefix = strings.ToLower(prefix)

	docs := map[string]string{}
	if d, ok := rcvr.(Documented); ok {
		docs = d.CommandDocs()
	}

	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if m.Name == "CommandDocs" {
			continue // registration metadata, not a remote command
		}
		mt := m.Func.Type()
		if mt.IsVariadic() {
			return fmt.Errorf("%w: variadic method %s.%s is not supported", ErrConfig, rt.Elem().Name(), m.Name)
		}
		if err := checkOutputs(mt); err != nil {
			return fmt.Errorf("%s.%s: %w", rt.Elem().Name(), m.Name, err)
		}
		bare := SnakeCase(m.Name)
		err := t.add(&Entry{
			Name:   prefix + bare,
			Doc:    docs[bare],
			Kind:   KindFunction,
			Invoke: makeMethodInvoker(rv, m),
		})
		if err != nil {
			return err
		}
	}

	elem := rv.Elem()
	st := rt.Elem()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		name, readonly, skip := parseFieldTag(f)
		if skip {
			continue
		}
		prop := prefix + name
		field := elem.Field(i)

		err := t.add(&Entry{
			Name:   "get_" + prop,
			Doc:    docs[name],
			Kind:   KindGetter,
			Invoke: makeGetter(field),
		})
		if err != nil {
			return err
		}
		if !readonly {
			err := t.add(&Entry{
				Name:   "set_" + prop,
				Doc:    docs[name],
				Kind:   KindSetter,
				Invoke: makeSetter(field, prop),
			})
			if err != nil {
				return err
			}
		}
		t.props[prop] = true
	}
	return nil
}

func parseFieldTag(f reflect.StructField) (name string, readonly, skip bool) {
	name = SnakeCase(f.Name)
	tag := f.Tag.Get("cmd")
	if tag == "" {
		return name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	for _, part := range strings.Split(tag, ",") {
		switch part {
		case "readonly":
			readonly = true
		case "":
		default:
			name = strings.ToLower(part)
		}
	}
	return name, readonly, false
}

func makeMethodInvoker(rcvr reflect.Value, m reflect.Method) Func {
	mt := m.Func.Type() // In(0) is the receiver
	numIn := mt.NumIn() - 1
	numOut := mt.NumOut()
	errOut := numOut > 0 && mt.Out(numOut-1) == errType

	return func(args []any, kwargs map[string]any) (any, error) {
		if len(kwargs) != 0 {
			return nil, argErrf("method commands accept positional arguments only")
		}
		if len(args) != numIn {
			return nil, argErrf("takes %d arguments, got %d", numIn, len(args))
		}
		in := make([]reflect.Value, numIn+1)
		in[0] = rcvr
		for i, a := range args {
			v, err := value.Coerce(a, mt.In(i+1))
			if err != nil {
				return nil, argErrf("argument %d: %v", i, err)
			}
			in[i+1] = v
		}
		return results(m.Func.Call(in), errOut)
	}
}

func makeGetter(field reflect.Value) Func {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 0 || len(kwargs) != 0 {
			return nil, argErrf("property getters take no arguments")
		}
		return field.Interface(), nil
	}
}

func makeSetter(field reflect.Value, prop string) Func {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 1 || len(kwargs) != 0 {
			return nil, argErrf("setting %q takes exactly one argument", prop)
		}
		v, err := value.Coerce(args[0], field.Type())
		if err != nil {
			return nil, argErrf("property %q: %v", prop, err)
		}
		field.Set(v)
		return nil, nil
	}
}

// SnakeCase converts Go identifiers to the lowercase command style:
// "ReadVoltage" → "read_voltage", "HTTPMode" → "http_mode". The proxy binder
// uses the same derivation so bound names line up with registered ones.
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			boundary := i > 0 && (!unicode.IsUpper(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1])))
			if boundary {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
