package wire

import "reflect"

// validatePointer is the Go-native replacement for the source's level-3
// OS-memory-landmark pointer classifier (spec §4.2, "Pointer validation").
// The type system already rules out the "text segment"/"null-looking
// literal" mistakes the original guarded against; what remains or a
// reimplementation is to reject arguments that cannot possibly be a write
// destination: a nil interface, a non-pointer, or a nil pointer. False
// negatives (accepting something that later fails to Set) are acceptable,
// matching the conservative bias the spec calls for; a bogus non-pointer
// argument in a Locations-context slot is not.
func validatePointer(arg any) (reflect.Value, bool) {
	if arg == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(arg)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, false
	}
	return rv, true
}
