package store

import "reflect"

// defaultEqual reports whether a reducer left state unchanged.
//
// Comparable dynamic types (pointers, scalars, comparable structs) compare
// with ==, so a reducer returning the same pointer counts as unchanged.
// Everything else falls back to reflect.DeepEqual, which costs a walk of
// the state per dispatch; see Config.Equal.
func defaultEqual[S any](a, b S) (equal bool) {
	ta, tb := reflect.TypeOf(any(a)), reflect.TypeOf(any(b))
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	// Comparable structs may still hold uncomparable values in interface
	// fields; == panics on those.
	defer func() {
		if recover() != nil {
			equal = reflect.DeepEqual(a, b)
		}
	}()
	return any(a) == any(b)
}
