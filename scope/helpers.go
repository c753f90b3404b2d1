package scope

import (
	"fmt"
	"reflect"
	"strings"
)

func toString(value interface{}) string {
	if value == nil || IsUndefined(value) {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

// DefaultHelpers returns the functions every expression can call when no
// property of the same name shadows them.
func DefaultHelpers() map[string]interface{} {
	return map[string]interface{}{
		"upper": strings.ToUpper,

		"lower": strings.ToLower,

		"concat": func(parts ...interface{}) string {
			s := ""
			for _, p := range parts {
				s += toString(p)
			}
			return s
		},

		"join": func(collection interface{}, sep string) string {
			n, _ := Length(collection)
			parts := make([]string, 0, n)
			for i := 0; i < n; i++ {
				it, err := Item(collection, i)
				if err != nil {
					break
				}
				parts = append(parts, toString(it))
			}
			return strings.Join(parts, sep)
		},

		"isEqual": func(a, b interface{}) bool {
			return reflect.DeepEqual(a, b)
		},

		"not": func(a interface{}) bool {
			return !Truthy(a)
		},

		"isEmpty": func(collection interface{}) bool {
			n, _ := Length(collection)
			return n == 0
		},

		"len": func(collection interface{}) int {
			n, _ := Length(collection)
			return n
		},

		"toStr": toString,
	}
}
