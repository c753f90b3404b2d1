// Package scope holds the evaluation context of a directive and the
// reflection accessors the evaluators use to read and write view model
// properties.
package scope

import (
	"fmt"
	"reflect"
)

// Free names, resolved when neither the current object nor the root has
// a property of that name.
const (
	NameRoot  = "root"
	NameIndex = "index"
	NameThis  = "this"
)

// Scope is the two level context an expression is evaluated in: the
// ViewModel root, the current object narrowed by vm-with, and the list
// index of the enclosing each clone. Helpers are looked up last.
type Scope struct {
	Root     interface{}
	Current  interface{}
	Index    int
	HasIndex bool
	Helpers  map[string]interface{}
}

func New(root interface{}) Scope {
	return Scope{Root: root, Current: root}
}

// With returns the scope narrowed to current, the index is kept.
func (s Scope) With(current interface{}) Scope {
	s.Current = current
	return s
}

func (s Scope) WithIndex(index int) Scope {
	s.Index = index
	s.HasIndex = true
	return s
}

func (s Scope) models() []interface{} {
	if s.Current == nil {
		return []interface{}{s.Root}
	}

	return []interface{}{s.Current, s.Root}
}

// Lookup resolves an unqualified name: properties of current, then of
// root, then the free names, then the helpers.
func (s Scope) Lookup(name string) (value interface{}, ok bool, err error) {
	for _, m := range s.models() {
		if m == nil || isNilPtr(reflect.ValueOf(m)) {
			continue
		}

		value, ok, err = Get(m, name)
		if err != nil || ok {
			return
		}
	}

	switch name {
	case NameRoot:
		return s.Root, true, nil
	case NameThis:
		return s.Current, true, nil
	case NameIndex:
		if s.HasIndex {
			return s.Index, true, nil
		}
	}

	if h, ok := s.Helpers[name]; ok {
		return h, true, nil
	}

	return nil, false, nil
}

// Set assigns an unqualified name. The owner is the first of current and
// root having the property, a map current receives unknown names.
func (s Scope) Set(name string, value interface{}) error {
	for _, m := range s.models() {
		if m != nil && Has(m, name) {
			return Set(m, name, value)
		}
	}

	if s.Current != nil && Indirect(reflect.ValueOf(s.Current)).Kind() == reflect.Map {
		return Set(s.Current, name, value)
	}

	return fmt.Errorf(`Unable to find symbol "%v" in the Scope`, name)
}

// Touch sets name to nil on a map current that does not have it yet, so
// the failing lookup is not repeated.
func (s Scope) Touch(name string) {
	if s.Current == nil {
		return
	}

	m := Indirect(reflect.ValueOf(s.Current))
	if m.Kind() != reflect.Map || m.IsNil() || m.Type().Key().Kind() != reflect.String {
		return
	}

	key := reflect.ValueOf(name).Convert(m.Type().Key())
	if m.MapIndex(key).IsValid() {
		return
	}

	m.SetMapIndex(key, reflect.Zero(m.Type().Elem()))
}
