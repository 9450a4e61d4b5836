package command

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"remotecmd/value"
)

// Param describes one declared parameter of a registered function: its
// keyword name and an optional default used when the caller omits it.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
}

// Required declares a parameter the caller must supply.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares a parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

type funcConfig struct {
	name   string
	doc    string
	params []Param
}

// FuncOption customizes a function registration.
type FuncOption func(*funcConfig)

// WithName overrides the command name derived from the function identifier.
// Anonymous functions must be named explicitly.
func WithName(name string) FuncOption {
	return func(c *funcConfig) { c.name = name }
}

// WithDoc attaches the documentation string served by help.
func WithDoc(doc string) FuncOption {
	return func(c *funcConfig) { c.doc = doc }
}

// WithParams declares parameter names and defaults. The count must match the
// function's arity; without it, parameters are positional-only and named
// arg0, arg1, ...
func WithParams(params ...Param) FuncOption {
	return func(c *funcConfig) { c.params = params }
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// RegisterFunc adds one entry backed by fn. The command name defaults to the
// function's identifier in snake_case; keyword binding and defaults come
// from WithParams.
func (t *Table) RegisterFunc(fn any, opts ...FuncOption) error {
	var cfg funcConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return fmt.Errorf("%w: registrant must be a function, got %T", ErrConfig, fn)
	}
	rt := rv.Type()
	if rt.IsVariadic() {
		return fmt.Errorf("%w: variadic functions are not supported", ErrConfig)
	}
	if err := checkOutputs(rt); err != nil {
		return err
	}

	name := cfg.name
	if name == "" {
		name = funcName(rv)
		if name == "" {
			return fmt.Errorf("%w: anonymous functions must be registered with WithName", ErrConfig)
		}
	}

	params := cfg.params
	if params == nil {
		params = make([]Param, rt.NumIn())
		for i := range params {
			params[i] = Param{Name: fmt.Sprintf("arg%d", i)}
		}
	}
	if len(params) != rt.NumIn() {
		return fmt.Errorf("%w: %q declares %d parameters but takes %d", ErrConfig, name, len(params), rt.NumIn())
	}
	seenDefault := false
	for _, p := range params {
		if p.HasDefault {
			seenDefault = true
		} else if seenDefault {
			return fmt.Errorf("%w: %q has a required parameter after an optional one", ErrConfig, name)
		}
	}

	return t.add(&Entry{
		Name:   name,
		Doc:    cfg.doc,
		Kind:   KindFunction,
		Invoke: makeFuncInvoker(rv, params),
	})
}

// funcName recovers the function's identifier via the runtime and converts
// it to command style. Anonymous functions yield "".
func funcName(rv reflect.Value) string {
	pc := runtime.FuncForPC(rv.Pointer())
	if pc == nil {
		return ""
	}
	full := pc.Name()
	if strings.Contains(full, ".func") {
		return "" // closure or function literal
	}
	short := full[strings.LastIndex(full, ".")+1:]
	short = strings.TrimSuffix(short, "-fm") // method value wrappers
	return SnakeCase(short)
}

func makeFuncInvoker(fn reflect.Value, params []Param) Func {
	rt := fn.Type()
	numOut := rt.NumOut()
	errOut := numOut > 0 && rt.Out(numOut-1) == errType

	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) > len(params) {
			return nil, argErrf("takes at most %d positional arguments, got %d", len(params), len(args))
		}
		bound := make([]any, len(params))
		set := make([]bool, len(params))
		for i, a := range args {
			bound[i] = a
			set[i] = true
		}
		for k, v := range kwargs {
			idx := -1
			for i := range params {
				if params[i].Name == k {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, argErrf("unexpected keyword argument %q", k)
			}
			if set[idx] {
				return nil, argErrf("duplicate value for argument %q", k)
			}
			bound[idx] = v
			set[idx] = true
		}

		in := make([]reflect.Value, len(params))
		for i := range params {
			if !set[i] {
				if !params[i].HasDefault {
					return nil, argErrf("missing required argument %q", params[i].Name)
				}
				bound[i] = params[i].Default
			}
			v, err := value.Coerce(bound[i], rt.In(i))
			if err != nil {
				return nil, argErrf("argument %q: %v", params[i].Name, err)
			}
			in[i] = v
		}
		return results(fn.Call(in), errOut)
	}
}

// checkOutputs accepts zero returns, one return (a value or an error), or
// a (value, error) pair.
func checkOutputs(rt reflect.Type) error {
	switch rt.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if rt.Out(1) != errType {
			return fmt.Errorf("%w: second return value must be error", ErrConfig)
		}
		return nil
	}
	return fmt.Errorf("%w: at most two return values are supported", ErrConfig)
}

func results(out []reflect.Value, errOut bool) (any, error) {
	if errOut {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// argErrf builds a binding failure carrying the "argument" kind so the
// remote caller can distinguish it from handler failures.
func argErrf(format string, a ...any) error {
	return &value.Error{Kind: "argument", Message: fmt.Sprintf(format, a...)}
}
