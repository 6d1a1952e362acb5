// Package assert contains runtime assertions for invariants that can only be
// broken by a programming mistake (ex. wiring a component with a nil dependency).
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil or is an interface holding a nil pointer.
func NotNil(value any) {
	if value == nil {
		panic("assertion failed: value is nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("assertion failed: %s is nil", v.Type()))
		}
	}
}

// True panics with the given message if cond is false.
func True(cond bool, message string) {
	if !cond {
		panic("assertion failed: " + message)
	}
}
