package scope

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var timeType = reflect.TypeOf(time.Time{})

func isNilPtr(v reflect.Value) bool {
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Indirect follows pointers and interfaces down to the concrete value.
func Indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}

	return v
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

func structField(o reflect.Value, name string) (reflect.Value, bool) {
	for _, n := range []string{name, exported(name)} {
		sf, ok := o.Type().FieldByName(n)
		if ok && sf.PkgPath == "" {
			return o.FieldByIndex(sf.Index), true
		}
	}

	return reflect.Value{}, false
}

func method(o reflect.Value, name string) (reflect.Value, bool) {
	for _, n := range []string{name, exported(name)} {
		if m := o.MethodByName(n); m.IsValid() {
			return m, true
		}
	}

	return reflect.Value{}, false
}

func mapKey(m reflect.Value, key interface{}) (reflect.Value, error) {
	k, err := Convert(key, m.Type().Key())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("illegal key %v for a map: %v", key, err)
	}

	return k, nil
}

func sliceIndex(o reflect.Value, key interface{}) (int, error) {
	var num int
	switch k := key.(type) {
	case int:
		num = k
	case float64:
		num = int(k)
	default:
		if _, err := fmt.Sscan(fmt.Sprint(key), &num); err != nil {
			return 0, fmt.Errorf("%v - illegal field %v for a slice", err.Error(), key)
		}
	}

	if num < 0 || num >= o.Len() {
		return 0, fmt.Errorf("index %v out of range [0, %v)", num, o.Len())
	}

	return num, nil
}

// field returns the field value of an object, be it a struct instance,
// a map or a slice. Methods are returned bound to their receiver.
func field(obj reflect.Value, key interface{}) (rv reflect.Value, ok bool, err error) {
	if isNilPtr(obj) {
		err = fmt.Errorf("Accessing field %v of a nil pointer.", key)
		return
	}

	if name, isStr := key.(string); isStr && obj.Kind() != reflect.Interface {
		if rv, ok = method(obj, name); ok {
			return
		}
	}

	o := Indirect(obj)
	if !o.IsValid() || ((o.Kind() == reflect.Ptr || o.Kind() == reflect.Interface) && o.IsNil()) {
		err = fmt.Errorf("Accessing field %v of nil.", key)
		return
	}

	switch o.Kind() {
	case reflect.Struct:
		name := fmt.Sprint(key)
		rv, ok = structField(o, name)
		if !ok {
			if o.CanAddr() {
				rv, ok = method(o.Addr(), name)
			} else {
				rv, ok = method(o, name)
			}
		}

	case reflect.Map:
		var k reflect.Value
		if k, err = mapKey(o, key); err != nil {
			return
		}
		rv = o.MapIndex(k)
		ok = rv.IsValid()

	case reflect.Slice, reflect.Array, reflect.String:
		i, ierr := sliceIndex(o, key)
		if ierr != nil {
			return
		}
		rv, ok = o.Index(i), true
		if o.Kind() == reflect.String {
			rv = reflect.ValueOf(string(o.String()[i]))
		}

	default:
		if name, isStr := key.(string); isStr {
			rv, ok = method(o, name)
		}
	}

	return
}

// Get reads property key of obj. ok is false when the property does not
// exist, err is set when obj cannot have properties at all.
func Get(obj interface{}, key interface{}) (value interface{}, ok bool, err error) {
	if obj == nil {
		return nil, false, fmt.Errorf("Accessing field %v of nil.", key)
	}

	rv, ok, err := field(reflect.ValueOf(obj), key)
	if err != nil || !ok {
		return nil, ok, err
	}

	return export(rv), true, nil
}

// export returns the value held by rv. Addressable structs are returned
// as pointers so writes through them reach the model, times stay values.
func export(rv reflect.Value) interface{} {
	if rv.Kind() == reflect.Struct && rv.CanAddr() && rv.Type() != timeType {
		return rv.Addr().Interface()
	}

	return rv.Interface()
}

// Has reports whether obj has the property key.
func Has(obj interface{}, key interface{}) bool {
	_, ok, err := Get(obj, key)
	return ok && err == nil
}

// Set assigns property key of obj, converting value to the property type.
// Struct fields are only settable through a pointer.
func Set(obj interface{}, key interface{}, value interface{}) error {
	if obj == nil {
		return fmt.Errorf("Cannot set field %v of nil.", key)
	}

	o := Indirect(reflect.ValueOf(obj))
	if !o.IsValid() || ((o.Kind() == reflect.Ptr || o.Kind() == reflect.Interface) && o.IsNil()) {
		return fmt.Errorf("Cannot set field %v of a nil pointer.", key)
	}

	switch o.Kind() {
	case reflect.Struct:
		fv, ok := structField(o, fmt.Sprint(key))
		if !ok {
			return fmt.Errorf(`No field "%v" in %v.`, key, o.Type())
		}
		if !fv.CanSet() {
			return fmt.Errorf(`Field "%v" of %v is not settable, the model must be a pointer.`, key, o.Type())
		}
		return assign(fv, value)

	case reflect.Map:
		if o.IsNil() {
			return fmt.Errorf("Cannot set key %v of a nil map.", key)
		}
		k, err := mapKey(o, key)
		if err != nil {
			return err
		}
		v, err := Convert(value, o.Type().Elem())
		if err != nil {
			return err
		}
		o.SetMapIndex(k, v)
		return nil

	case reflect.Slice, reflect.Array:
		i, err := sliceIndex(o, key)
		if err != nil {
			return err
		}
		ev := o.Index(i)
		if !ev.CanSet() {
			return fmt.Errorf("Element %v of %v is not settable.", i, o.Type())
		}
		return assign(ev, value)
	}

	return fmt.Errorf("Cannot set field %v of a %v.", key, o.Kind())
}

func assign(dst reflect.Value, value interface{}) error {
	v, err := Convert(value, dst.Type())
	if err != nil {
		return err
	}

	dst.Set(v)
	return nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k)
}

// Convert converts value to type t. nil becomes the zero value, strings
// coming from the DOM are parsed into numbers, bools and times.
func Convert(value interface{}, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch {
	case t.Kind() == reflect.Ptr:
		ev, err := Convert(value, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(ev)
		return p, nil

	case v.Kind() == reflect.String:
		return parseString(v.String(), t)

	case isNumber(v.Kind()) && isNumber(t.Kind()):
		return v.Convert(t), nil

	case t.Kind() == reflect.String:
		return reflect.ValueOf(fmt.Sprint(value)).Convert(t), nil

	case v.Type().ConvertibleTo(t):
		return v.Convert(t), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot convert %v (%T) to %v", value, value, t)
}

func parseString(s string, t reflect.Type) (reflect.Value, error) {
	trimmed := strings.TrimSpace(s)
	if t == timeType {
		tm, err := ParseTime(trimmed)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(tm), nil
	}

	nv := reflect.New(t).Elem()
	k := t.Kind()
	if trimmed == "" && (isNumber(k) || k == reflect.Bool) {
		return nv, nil
	}

	switch {
	case k == reflect.String:
		nv.SetString(s)
	case isInt(k):
		i, err := strconv.ParseInt(trimmed, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		nv.SetInt(i)
	case isUint(k):
		u, err := strconv.ParseUint(trimmed, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		nv.SetUint(u)
	case isFloat(k):
		f, err := strconv.ParseFloat(trimmed, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		nv.SetFloat(f)
	case k == reflect.Bool:
		if trimmed == "on" {
			nv.SetBool(true)
			break
		}
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return reflect.Value{}, err
		}
		nv.SetBool(b)
	default:
		return reflect.Value{}, fmt.Errorf("cannot convert %q to %v", s, t)
	}

	return nv, nil
}

// Length returns the length of an array-like value: slice, array, map,
// string, a Len() int method or a length property.
func Length(value interface{}) (int, bool) {
	if value == nil {
		return 0, false
	}

	if l, ok := value.(interface{ Len() int }); ok {
		return l.Len(), true
	}

	v := Indirect(reflect.ValueOf(value))
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return v.Len(), true
	}

	if lv, ok, err := Get(value, "length"); ok && err == nil {
		if n, err := Convert(lv, reflect.TypeOf(0)); err == nil {
			return int(n.Int()), true
		}
	}

	return 0, false
}

// Item returns the i-th element of an array-like value, through indexing
// or an Item(int) accessor.
func Item(value interface{}, i int) (interface{}, error) {
	if it, ok := value.(interface{ Item(int) interface{} }); ok {
		return it.Item(i), nil
	}

	v := Indirect(reflect.ValueOf(value))
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if i < 0 || i >= v.Len() {
			return nil, fmt.Errorf("index %v out of range [0, %v)", i, v.Len())
		}
		return export(v.Index(i)), nil
	}

	if m, ok, _ := field(reflect.ValueOf(value), "item"); ok && m.Kind() == reflect.Func {
		rets, err := Call(m, []interface{}{i})
		if err != nil {
			return nil, err
		}
		return rets, nil
	}

	return nil, fmt.Errorf("%T is not array-like", value)
}

// Call calls fn with args converted to its parameter types, extra
// arguments are dropped. It returns
// the first result, or the error when the last result is a non nil error.
// Panics of the called function are returned as errors.
func Call(fn reflect.Value, args []interface{}) (ret interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	ft := fn.Type()
	if !ft.IsVariadic() && len(args) > ft.NumIn() {
		args = args[:ft.NumIn()]
	}

	in := make([]reflect.Value, 0, len(args))
	for i, a := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			pt = ft.In(ft.NumIn() - 1).Elem()
		} else {
			pt = ft.In(i)
		}

		av, cerr := Convert(a, pt)
		if cerr != nil {
			return nil, fmt.Errorf("argument %v: %v", i, cerr)
		}
		in = append(in, av)
	}

	want := ft.NumIn()
	if ft.IsVariadic() {
		want--
	}
	for len(in) < want {
		in = append(in, reflect.Zero(ft.In(len(in))))
	}

	rets := fn.Call(in)
	if n := len(rets); n > 0 && ft.Out(n-1) == errorType {
		if e := rets[n-1].Interface(); e != nil {
			return nil, e.(error)
		}
		rets = rets[:n-1]
	}

	if len(rets) >= 1 {
		ret = rets[0].Interface()
	}

	return
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FormatTime renders t in UTC as a trimmed ISO 8601 string: the date
// alone when the time of day is zero, otherwise the smallest of minutes,
// seconds or milliseconds precision that loses nothing. There is no zone
// suffix.
func FormatTime(t time.Time) string {
	t = t.UTC()
	switch {
	case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0:
		return t.Format("2006-01-02")
	case t.Second() == 0 && t.Nanosecond() == 0:
		return t.Format("2006-01-02T15:04")
	case t.Nanosecond()/int(time.Millisecond) == 0:
		return t.Format("2006-01-02T15:04:05")
	}

	return t.Format("2006-01-02T15:04:05.000")
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses the formats produced by FormatTime, and RFC 3339.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse %q as a time", s)
}
