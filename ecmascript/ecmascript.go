// Package ecmascript evaluates binding expressions as ECMAScript using
// goja. Top level names resolve through the binding scope, nested
// properties of Go values use goja's reflection, so they keep their Go
// names.
package ecmascript

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/gowade/vmr/scope"
)

const (
	scopeName = "__scope"
	valueName = "__value"
	thisName  = "__this"
)

var memberRegex = regexp.MustCompile(`^(.+)\.([A-Za-z_$][\w$]*)$`)

// Evaluator compiles each expression once. Every evaluation runs on a
// fresh runtime, so it is safe for concurrent use and functions returned
// by Eval may be called later.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*goja.Program
	members  map[string][]string
}

func New() *Evaluator {
	return &Evaluator{
		programs: map[string]*goja.Program{},
		members:  map[string][]string{},
	}
}

// member splits an expression whose outermost operation is a property
// read, like a.b.c, into the receiver a.b and the name c.
func (e *Evaluator) member(expression string) (recv, name string, ok bool) {
	e.mu.RLock()
	m, cached := e.members[expression]
	e.mu.RUnlock()

	if !cached {
		m = memberRegex.FindStringSubmatch(expression)
		if m != nil && !isPropertyRead(expression, m[2]) {
			m = nil
		}

		e.mu.Lock()
		e.members[expression] = m
		e.mu.Unlock()
	}

	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// isPropertyRead reports whether the whole expression reads property name,
// so that a + b.c is not taken for a read of c from a + b.
func isPropertyRead(expression, name string) bool {
	prog, err := parser.ParseFile(nil, "", expression, 0)
	if err != nil || len(prog.Body) != 1 {
		return false
	}

	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return false
	}

	dot, ok := stmt.Expression.(*ast.DotExpression)
	return ok && string(dot.Identifier.Name) == name
}

// with blocks are not allowed in strict mode.
func (e *Evaluator) compile(src string) (*goja.Program, error) {
	e.mu.RLock()
	p, ok := e.programs[src]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := goja.Compile("", src, false)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[src] = p
	e.mu.Unlock()

	return p, nil
}

func (e *Evaluator) run(src string, s scope.Scope, value interface{}) (*goja.Runtime, goja.Value, error) {
	p, err := e.compile(src)
	if err != nil {
		return nil, nil, err
	}

	vm := goja.New()
	vm.Set(scopeName, vm.NewDynamicObject(&dynamicScope{vm: vm, s: s}))
	vm.Set(thisName, s.Current)
	if value != nil {
		vm.Set(valueName, value)
	}

	res, err := vm.RunProgram(p)
	return vm, res, err
}

func (e *Evaluator) Eval(expression string, s scope.Scope) (interface{}, error) {
	expression = strings.TrimSpace(expression)
	if recv, name, ok := e.member(expression); ok {
		return e.evalMember(expression, recv, name, s)
	}

	src := fmt.Sprintf("(function() { with (%v) { return (%v\n); } }).call(%v)", scopeName, expression, thisName)
	vm, res, err := e.run(src, s, nil)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", expression, err)
	}

	if fn, ok := goja.AssertFunction(res); ok {
		return e.bind(vm, expression, vm.ToValue(s.Root), res, fn), nil
	}

	return export(res), nil
}

// evalMember evaluates the receiver once and reads name from it, so a
// method keeps the object it was read from.
func (e *Evaluator) evalMember(expression, recv, name string, s scope.Scope) (interface{}, error) {
	src := fmt.Sprintf("(function() { with (%v) { return (function(r) { return [r, r[%q]]; })(%v\n); } }).call(%v)",
		scopeName, name, recv, thisName)
	vm, res, err := e.run(src, s, nil)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", expression, err)
	}

	pair := res.ToObject(vm)
	this, v := pair.Get("0"), pair.Get("1")
	if fn, ok := goja.AssertFunction(v); ok {
		return e.bind(vm, name, this, v, fn), nil
	}

	return export(v), nil
}

// bind returns fn as a function called on this.
func (e *Evaluator) bind(vm *goja.Runtime, name string, this goja.Value, res goja.Value, fn goja.Callable) scope.Func {
	exported := res.Export()
	if _, isJS := exported.(func(goja.FunctionCall) goja.Value); !isJS {
		if f, ok := scope.BindFunc(name, export(this), exported); ok {
			return f
		}
	}

	return scope.Func{
		Name:     name,
		Receiver: export(this),
		Fn: func(args ...interface{}) (interface{}, error) {
			jsArgs := make([]goja.Value, len(args))
			for i, a := range args {
				jsArgs[i] = vm.ToValue(a)
			}

			ret, err := fn(this, jsArgs...)
			if err != nil {
				return nil, err
			}
			return export(ret), nil
		},
	}
}

func (e *Evaluator) Assign(value interface{}, expression string, s scope.Scope) error {
	rhs := valueName
	if value == nil {
		rhs = "null"
	}
	src := fmt.Sprintf("(function() { with (%v) { %v = %v; } }).call(%v)", scopeName, expression, rhs, thisName)

	if _, _, err := e.run(src, s, value); err != nil {
		return fmt.Errorf("assigning %q: %w", expression, err)
	}

	return nil
}

func export(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) {
		return scope.Undefined
	}

	if goja.IsNull(v) {
		return nil
	}

	switch x := v.Export().(type) {
	case int64:
		if int64(int(x)) == x {
			return int(x)
		}
		return x
	default:
		return x
	}
}

// dynamicScope resolves names of a with block through the binding scope.
type dynamicScope struct {
	vm *goja.Runtime
	s  scope.Scope
}

func (d *dynamicScope) Get(key string) goja.Value {
	v, ok, err := d.s.Lookup(key)
	if err != nil {
		panic(d.vm.NewGoError(err))
	}

	if !ok || scope.IsUndefined(v) {
		return goja.Undefined()
	}

	if f, isFunc := v.(scope.Func); isFunc {
		return d.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			args := make([]interface{}, len(call.Arguments))
			for i, a := range call.Arguments {
				args[i] = export(a)
			}
			ret, err := f.Call(args...)
			if err != nil {
				panic(d.vm.NewGoError(err))
			}
			return d.vm.ToValue(ret)
		})
	}

	return d.vm.ToValue(v)
}

func (d *dynamicScope) Set(key string, val goja.Value) bool {
	var v interface{}
	if !goja.IsNull(val) && !goja.IsUndefined(val) {
		v = export(val)
	}

	if err := d.s.Set(key, v); err != nil {
		panic(d.vm.NewGoError(err))
	}

	return true
}

func (d *dynamicScope) Has(key string) bool {
	if key == scopeName || key == valueName || key == thisName {
		return false
	}

	_, ok, err := d.s.Lookup(key)
	return ok && err == nil
}

func (d *dynamicScope) Delete(key string) bool {
	return false
}

func (d *dynamicScope) Keys() []string {
	return nil
}
