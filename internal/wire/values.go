package wire

import "reflect"

// narrowValue applies the explicit widening-reversal table from spec §4.2:
// char/short are extracted as int then stored as the narrower type;
// unsigned char/short/byte as unsigned int then stored narrower; float as
// double then stored as float32. Go's `any` varargs don't undergo C's
// default argument promotion, so this is an explicit narrowing instead of
// an implicit one — the caller may pass any convertible numeric kind and
// still get the documented on-wire representation.
func narrowValue(ctype CType, arg any) any {
	rv := reflect.ValueOf(arg)
	switch ctype {
	case CTypeChar:
		return int8(asI64(rv))
	case CTypeShort:
		return int16(asI64(rv))
	case CTypeUnsignedChar, CTypeByte:
		return uint8(asU64(rv))
	case CTypeUnsignedShort:
		return uint16(asU64(rv))
	case CTypeFloat:
		return float32(asF64(rv))
	default:
		return arg
	}
}

func asI64(rv reflect.Value) int64 {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float())
	default:
		return 0
	}
}

func asU64(rv reflect.Value) uint64 {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return uint64(rv.Float())
	default:
		return 0
	}
}

func asF64(rv reflect.Value) float64 {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	default:
		return 0
	}
}
