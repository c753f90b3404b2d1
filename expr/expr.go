// Package expr is the embedded expression language of the binding
// engine. It covers the JavaScript subset view templates use: literals,
// property paths, indexing, calls, arithmetic, comparison, logical and
// ternary operators.
package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gowade/vmr/scope"
)

// Undefined is the result of reading a property that does not exist.
var Undefined = scope.Undefined

var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrNotAssignable     = errors.New("invalid assignment target")
)

// Evaluator parses expressions once and evaluates them against a scope.
// It is safe for concurrent use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]node
}

func New() *Evaluator {
	return &Evaluator{cache: map[string]node{}}
}

func (e *Evaluator) parse(expression string) (node, error) {
	e.mu.RLock()
	n, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return n, nil
	}

	n, err := parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expression, err)
	}

	e.mu.Lock()
	e.cache[expression] = n
	e.mu.Unlock()

	return n, nil
}

// Cached returns the number of parsed expressions held.
func (e *Evaluator) Cached() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// Eval returns the value of expression. A missing property is Undefined,
// function values are returned as scope.Func.
func (e *Evaluator) Eval(expression string, s scope.Scope) (value interface{}, err error) {
	n, err := e.parse(expression)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluating %q: %v", expression, r)
		}
	}()

	v, recv, err := (&evaluation{s}).eval(n)
	if err != nil {
		return nil, err
	}

	if f, ok := scope.BindFunc(name(n), recv, v); ok {
		return f, nil
	}

	return v, nil
}

// Assign executes expression = value. The target must be an identifier,
// a member or an index expression.
func (e *Evaluator) Assign(value interface{}, expression string, s scope.Scope) (err error) {
	n, err := e.parse(expression)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assigning %q: %v", expression, r)
		}
	}()

	ev := &evaluation{s}
	switch t := n.(type) {
	case ident:
		return s.Set(t.name, value)

	case member:
		obj, _, err := ev.eval(t.obj)
		if err != nil {
			return err
		}
		return scope.Set(obj, t.name, value)

	case index:
		obj, _, err := ev.eval(t.obj)
		if err != nil {
			return err
		}
		key, _, err := ev.eval(t.key)
		if err != nil {
			return err
		}
		return scope.Set(obj, key, value)
	}

	return fmt.Errorf("%q: %w", expression, ErrNotAssignable)
}

func name(n node) string {
	switch t := n.(type) {
	case ident:
		return t.name
	case member:
		return t.name
	}

	return ""
}
