package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/gowade/vmr/scope"
)

type evaluation struct {
	s scope.Scope
}

// eval returns the value of n and the receiver a function read by n is
// bound to.
func (ev *evaluation) eval(n node) (v interface{}, recv interface{}, err error) {
	switch t := n.(type) {
	case literal:
		return t.value, nil, nil

	case ident:
		v, ok, err := ev.s.Lookup(t.name)
		if err != nil {
			return nil, nil, fmt.Errorf("%v: %w", t.name, err)
		}
		if !ok {
			return nil, nil, fmt.Errorf("%v: %w", t.name, ErrUnknownIdentifier)
		}
		return v, ev.s.Root, nil

	case member:
		obj, _, err := ev.eval(t.obj)
		if err != nil {
			return nil, nil, err
		}
		v, err := property(obj, t.name)
		return v, obj, err

	case index:
		obj, _, err := ev.eval(t.obj)
		if err != nil {
			return nil, nil, err
		}
		key, _, err := ev.eval(t.key)
		if err != nil {
			return nil, nil, err
		}
		v, err := element(obj, key)
		return v, obj, err

	case call:
		v, err := ev.call(t)
		return v, nil, err

	case unary:
		x, _, err := ev.eval(t.x)
		if err != nil {
			return nil, nil, err
		}
		v, err := unaryOp(t.op, x)
		return v, nil, err

	case binary:
		v, err := ev.binary(t)
		return v, nil, err

	case cond:
		test, _, err := ev.eval(t.test)
		if err != nil {
			return nil, nil, err
		}
		if scope.Truthy(test) {
			return ev.eval(t.yes)
		}
		return ev.eval(t.no)
	}

	return nil, nil, fmt.Errorf("unknown node %T", n)
}

func isNil(v interface{}) bool {
	if v == nil || scope.IsUndefined(v) {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}

	return false
}

func property(obj interface{}, name string) (interface{}, error) {
	if isNil(obj) {
		return nil, fmt.Errorf("Cannot read property %q of %v", name, display(obj))
	}

	v, ok, err := scope.Get(obj, name)
	if err != nil {
		return nil, err
	}

	if !ok {
		if name == "length" {
			if n, ok := scope.Length(obj); ok {
				return n, nil
			}
		}
		return Undefined, nil
	}

	return v, nil
}

func element(obj interface{}, key interface{}) (interface{}, error) {
	if isNil(obj) {
		return nil, fmt.Errorf("Cannot read index %v of %v", key, display(obj))
	}

	switch scope.Indirect(reflect.ValueOf(obj)).Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := scope.Number(key)
		if !ok {
			if s, isStr := key.(string); isStr {
				return property(obj, s)
			}
			return Undefined, nil
		}
		n, _ := scope.Length(obj)
		if i < 0 || int(i) >= n || i != math.Trunc(i) {
			return Undefined, nil
		}
		v, _, err := scope.Get(obj, int(i))
		return v, err
	}

	if s, ok := key.(string); ok {
		return property(obj, s)
	}

	v, ok, err := scope.Get(obj, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Undefined, nil
	}

	return v, nil
}

func display(v interface{}) string {
	if v == nil {
		return "null"
	}

	return fmt.Sprint(v)
}

func (ev *evaluation) call(c call) (interface{}, error) {
	args := make([]interface{}, 0, len(c.args))
	for _, a := range c.args {
		v, _, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	fnv, recv, err := ev.eval(c.fn)
	if err != nil {
		return nil, err
	}

	// item(i) on array-likes that do not define it
	if m, ok := c.fn.(member); ok && m.name == "item" && scope.IsUndefined(fnv) && len(args) == 1 {
		if i, isNum := scope.Number(args[0]); isNum {
			return scope.Item(recv, int(i))
		}
	}

	f, ok := scope.BindFunc(name(c.fn), recv, fnv)
	if !ok {
		return nil, fmt.Errorf("%v is not a function", name(c.fn))
	}

	return f.Call(args...)
}

func unaryOp(op string, x interface{}) (interface{}, error) {
	switch op {
	case "!":
		return !scope.Truthy(x), nil
	case "-":
		f, err := toNumber(x)
		if err != nil {
			return nil, err
		}
		return numberResult(-f, isIntegral(x)), nil
	}

	f, err := toNumber(x)
	if err != nil {
		return nil, err
	}
	return numberResult(f, isIntegral(x)), nil
}

func (ev *evaluation) binary(b binary) (interface{}, error) {
	l, _, err := ev.eval(b.l)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "&&":
		if !scope.Truthy(l) {
			return l, nil
		}
		r, _, err := ev.eval(b.r)
		return r, err
	case "||":
		if scope.Truthy(l) {
			return l, nil
		}
		r, _, err := ev.eval(b.r)
		return r, err
	}

	r, _, err := ev.eval(b.r)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "==":
		return looseEqual(l, r), nil
	case "!=":
		return !looseEqual(l, r), nil
	case "===":
		return strictEqual(l, r), nil
	case "!==":
		return !strictEqual(l, r), nil
	case "<", "<=", ">", ">=":
		return compare(b.op, l, r)
	case "+":
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return toString(l) + toString(r), nil
		}
	}

	return arith(b.op, l, r)
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}

	return fmt.Sprint(v)
}

func isIntegral(v interface{}) bool {
	k := reflect.ValueOf(v).Kind()
	return (k >= reflect.Int && k <= reflect.Uintptr) || k == reflect.Bool
}

func toNumber(v interface{}) (float64, error) {
	if f, ok := scope.Number(v); ok {
		return f, nil
	}

	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), nil
		}
		return f, nil
	}

	if scope.IsUndefined(v) {
		return math.NaN(), nil
	}

	return 0, fmt.Errorf("%v (%T) is not a number", v, v)
}

// numberResult keeps integer arithmetic in int.
func numberResult(f float64, integral bool) interface{} {
	if integral && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}

	return f
}

func arith(op string, l, r interface{}) (interface{}, error) {
	lf, err := toNumber(l)
	if err != nil {
		return nil, err
	}
	rf, err := toNumber(r)
	if err != nil {
		return nil, err
	}

	integral := isIntegral(l) && isIntegral(r)
	switch op {
	case "+":
		return numberResult(lf+rf, integral), nil
	case "-":
		return numberResult(lf-rf, integral), nil
	case "*":
		return numberResult(lf*rf, integral), nil
	case "/":
		return numberResult(lf/rf, integral && rf != 0), nil
	case "%":
		return numberResult(math.Mod(lf, rf), integral && rf != 0), nil
	}

	return nil, fmt.Errorf("unknown operator %v", op)
}

func compare(op string, l, r interface{}) (interface{}, error) {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		}
		return ls >= rs, nil
	}

	lf, err := toNumber(l)
	if err != nil {
		return nil, err
	}
	rf, err := toNumber(r)
	if err != nil {
		return nil, err
	}

	switch op {
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	}
	return lf >= rf, nil
}

func strictEqual(l, r interface{}) bool {
	if scope.IsUndefined(l) || scope.IsUndefined(r) {
		return scope.IsUndefined(l) && scope.IsUndefined(r)
	}

	lf, lnum := scope.Number(l)
	rf, rnum := scope.Number(r)
	if lnum || rnum {
		return lnum && rnum && lf == rf
	}

	if l == nil || r == nil {
		return isNil(l) && isNil(r)
	}

	lv, rv := reflect.ValueOf(l), reflect.ValueOf(r)
	if lv.Type() != rv.Type() {
		return false
	}
	if lv.Type().Comparable() {
		return l == r
	}

	return reflect.DeepEqual(l, r)
}

func looseEqual(l, r interface{}) bool {
	if isNil(l) || isNil(r) {
		return isNil(l) && isNil(r)
	}

	_, ls := l.(string)
	_, rs := r.(string)
	_, lb := l.(bool)
	_, rb := r.(bool)
	_, lnum := scope.Number(l)
	_, rnum := scope.Number(r)
	if (ls || lb || lnum) && (rs || rb || rnum) && !(ls && rs) {
		lf, _ := toNumber(l)
		rf, _ := toNumber(r)
		return lf == rf
	}

	return strictEqual(l, r)
}
