package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/serenize/snaker"

	"ssd/internal/core/errors"
	"ssd/internal/engine/diag"
)

type ScriptOptions struct {
	// Debug enables print() and debug(); otherwise they do nothing.
	Debug bool
	// Log receives print() and debug() output. Defaults to io.Discard.
	Log io.Writer
	// Diagnostics receives deprecation notices such as reads of
	// service.handlers. Defaults to diag.LogHandler.
	Diagnostics diag.Handler
}

// RunScript evaluates a generator script. The script writes its output through
// the `out` object (out.write, out.writeln) and reads the model from the
// `module` and `defines` globals; raw input is also bound to `raw`. The run
// stops when ctx is cancelled.
func RunScript(ctx context.Context, w io.Writer, name, src string, in Input, opts ScriptOptions) error {
	if opts.Log == nil {
		opts.Log = io.Discard
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diag.LogHandler
	}

	vm := goja.New()
	r := &scriptRuntime{vm: vm, out: w, opts: opts}
	if err := r.install(in); err != nil {
		return errors.AddContext(err, errors.CtxPath, name)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if _, err := vm.RunScript(name, src); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return errors.AddContext(errors.Wrap(ctx.Err(), errors.CodeInternal, "script interrupted"), errors.CtxPath, name)
		}
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "script failed"), errors.CtxPath, name)
	}
	return nil
}

type scriptRuntime struct {
	vm   *goja.Runtime
	out  io.Writer
	opts ScriptOptions
}

func (r *scriptRuntime) install(in Input) error {
	module, err := r.jsonValue(in.Data())
	if err != nil {
		return err
	}
	if in.Module != nil {
		if err := r.defineHandlers(module); err != nil {
			return err
		}
	}

	sink := r.vm.NewObject()
	if err := sink.Set("write", r.write(false)); err != nil {
		return err
	}
	if err := sink.Set("writeln", r.write(true)); err != nil {
		return err
	}

	globals := map[string]any{
		"module":  module,
		"defines": in.Defines,
		"NL":      "\n",
		"out":     sink,
		"print":   r.log("print"),
		"debug":   r.log("debug"),
		"join":    r.join,
		"snake":   snaker.CamelToSnake,
		"camel":   snaker.SnakeToCamel,
		"lower":   strings.ToLower,
		"upper":   strings.ToUpper,
		"ns":      r.namespace,
	}
	if in.Module == nil {
		globals["raw"] = module
	}
	for k, v := range globals {
		if err := r.vm.Set(k, v); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "cannot define script global "+k)
		}
	}
	return nil
}

// jsonValue converts v to plain JS objects through JSON, so scripts see the
// same field names as the data generator.
func (r *scriptRuntime) jsonValue(v any) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "cannot expose module to script")
	}
	parse, ok := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("parse"))
	if !ok {
		return nil, errors.New(errors.CodeInternal, "JSON.parse is not callable")
	}
	return parse(goja.Undefined(), r.vm.ToValue(string(data)))
}

// defineHandlers adds the deprecated `handlers` alias of `functions` to every
// service. Reading it reports a deprecation diagnostic.
func (r *scriptRuntime) defineHandlers(module goja.Value) error {
	services := module.ToObject(r.vm).Get("services")
	if services == nil || goja.IsUndefined(services) || goja.IsNull(services) {
		return nil
	}
	list := services.ToObject(r.vm)
	n := int(list.Get("length").ToInteger())
	for i := 0; i < n; i++ {
		pair := list.Get(strconv.Itoa(i)).ToObject(r.vm)
		name := pair.Get("0").String()
		svc := pair.Get("1").ToObject(r.vm)
		getter := r.vm.ToValue(func(goja.FunctionCall) goja.Value {
			r.opts.Diagnostics(diag.Diagnostic{
				Severity: diag.SeverityDeprecation,
				Message:  fmt.Sprintf("service %s: 'handlers' is deprecated, use 'functions'", name),
			})
			return svc.Get("functions")
		})
		if err := svc.DefineAccessorProperty("handlers", getter, nil, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "cannot define handlers alias")
		}
	}
	return nil
}

func (r *scriptRuntime) write(newline bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var b strings.Builder
		for _, arg := range call.Arguments {
			b.WriteString(arg.String())
		}
		if newline {
			b.WriteByte('\n')
		}
		if _, err := io.WriteString(r.out, b.String()); err != nil {
			panic(r.vm.NewGoError(err))
		}
		return goja.Undefined()
	}
}

func (r *scriptRuntime) log(prefix string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.opts.Debug {
			return goja.Undefined()
		}
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		fmt.Fprintf(r.opts.Log, "%s: %s\n", prefix, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func (r *scriptRuntime) join(call goja.FunctionCall) goja.Value {
	sep := call.Argument(1).String()
	if goja.IsUndefined(call.Argument(1)) {
		sep = ""
	}
	var items []string
	if err := r.vm.ExportTo(call.Argument(0), &items); err != nil {
		panic(r.vm.NewTypeError("join: expected an array of strings"))
	}
	return r.vm.ToValue(strings.Join(items, sep))
}

// namespace joins a namespace object ({components: [...]}) or a segment
// array. The separator defaults to "::".
func (r *scriptRuntime) namespace(call goja.FunctionCall) goja.Value {
	sep := "::"
	if arg := call.Argument(1); !goja.IsUndefined(arg) {
		sep = arg.String()
	}
	v := call.Argument(0)
	if obj, ok := v.(*goja.Object); ok {
		if c := obj.Get("components"); c != nil && !goja.IsUndefined(c) {
			v = c
		}
	}
	var items []string
	if err := r.vm.ExportTo(v, &items); err != nil {
		panic(r.vm.NewTypeError("ns: expected a namespace"))
	}
	return r.vm.ToValue(strings.Join(items, sep))
}
