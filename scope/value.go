package scope

import (
	"math"
	"reflect"
)

type undefined struct{}

func (undefined) String() string {
	return "undefined"
}

// Undefined is the value of a property that does not exist. It is
// distinct from nil, which is a property holding nothing.
var Undefined interface{} = undefined{}

func IsUndefined(v interface{}) bool {
	_, ok := v.(undefined)
	return ok
}

// Func is a function resolved by an expression, bound to the object it
// was read from.
type Func struct {
	Name     string
	Receiver interface{}
	Fn       func(args ...interface{}) (interface{}, error)
}

func (f Func) Call(args ...interface{}) (interface{}, error) {
	return f.Fn(args...)
}

// BindFunc wraps a Go function value. Methods read through reflection are
// already bound, receiver is kept for the evaluators that need it.
func BindFunc(name string, receiver interface{}, fn interface{}) (Func, bool) {
	if f, ok := fn.(Func); ok {
		return f, true
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return Func{}, false
	}

	return Func{
		Name:     name,
		Receiver: receiver,
		Fn: func(args ...interface{}) (interface{}, error) {
			return Call(rv, args)
		},
	}, true
}

// Truthy follows the JavaScript rules: nil, undefined, false, zero, NaN
// and the empty string are falsy, nil pointers, maps, slices and funcs too.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil, undefined:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case Func:
		return x.Fn != nil
	}

	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isInt(k):
		return rv.Int() != 0
	case isUint(k):
		return rv.Uint() != 0
	case isFloat(k):
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case k == reflect.Bool:
		return rv.Bool()
	case k == reflect.String:
		return rv.Len() > 0
	case k == reflect.Ptr, k == reflect.Map, k == reflect.Slice,
		k == reflect.Func, k == reflect.Interface, k == reflect.Chan:
		return !rv.IsNil()
	}

	return true
}

// Number returns v as a float64 when it is numeric.
func Number(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isInt(k):
		return float64(rv.Int()), true
	case isUint(k):
		return float64(rv.Uint()), true
	case isFloat(k):
		return rv.Float(), true
	}

	return 0, false
}
