package wire

import (
	"fmt"
	"reflect"
)

// Bind writes received into the pointer target validated earlier by
// validatePointer, completing the read half of a descriptor. Slices and
// strings must already be the exact Go type the writer sent (the
// reference transport carries Go values through unchanged); scalars are
// converted when possible, covering the narrowed wire types (int8, int16,
// uint8, uint16, float32) against whatever integer/float type the caller
// declared its destination as.
func Bind(target any, received any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("bind: target is not a settable pointer")
	}
	elem := rv.Elem()
	rvVal := reflect.ValueOf(received)
	if !rvVal.IsValid() {
		return fmt.Errorf("bind: received nil value")
	}
	if rvVal.Type() == elem.Type() {
		elem.Set(rvVal)
		return nil
	}
	if rvVal.Type().ConvertibleTo(elem.Type()) && isScalarKind(elem.Kind()) && isScalarKind(rvVal.Kind()) {
		elem.Set(rvVal.Convert(elem.Type()))
		return nil
	}
	return fmt.Errorf("bind: cannot assign %s into %s", rvVal.Type(), elem.Type())
}

// CopyInto fills a caller-provided fixed-size slice in place: a fixed
// array descriptor's target is already that slice (taken by reference,
// just like the write side), not a pointer to one, since Go slices are
// already reference types and the format already fixes the length.
func CopyInto(dst any, received any) error {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Slice {
		return fmt.Errorf("copyinto: target is not a slice")
	}
	sv := reflect.ValueOf(received)
	if !sv.IsValid() || sv.Kind() != reflect.Slice {
		return fmt.Errorf("copyinto: received value is not a slice")
	}
	if sv.Type().Elem() != dv.Type().Elem() {
		return fmt.Errorf("copyinto: element type mismatch: %s vs %s", sv.Type(), dv.Type())
	}
	if sv.Len() != dv.Len() {
		return fmt.Errorf("copyinto: length mismatch: got %d, want %d", sv.Len(), dv.Len())
	}
	reflect.Copy(dv, sv)
	return nil
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
