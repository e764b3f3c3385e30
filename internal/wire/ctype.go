// Package wire implements the format-string marshaller: parsing a
// printf-style format against a variadic argument list into per-message
// descriptors, validating pointer/argument-count preconditions, and
// folding the parsed shape into a comparable signature (spec §4.2).
package wire

import "pilotcsp.dev/pilot/pkg/transport"

// CType enumerates the C datatypes the original format grammar exposes,
// carried over unchanged so the signature fold (bits 0-4, see
// signature.go) lines up with the documented bit layout.
type CType int

const (
	CTypeInvalid CType = iota - 1
	CTypeChar
	CTypeShort
	CTypeInt
	CTypeLong
	CTypeUnsignedChar
	CTypeUnsignedShort
	CTypeUnsignedLong
	CTypeUnsigned
	CTypeFloat
	CTypeDouble
	CTypeLongDouble
	CTypeByte
	CTypeLongLong
	CTypeUnsignedLongLong
	CTypeUserDefined
)

// dataType maps a CType to the transport.DataType carried on the wire.
func (t CType) dataType() transport.DataType {
	switch t {
	case CTypeChar:
		return transport.TypeChar
	case CTypeShort:
		return transport.TypeShort
	case CTypeInt:
		return transport.TypeInt
	case CTypeLong:
		return transport.TypeLong
	case CTypeUnsignedChar:
		return transport.TypeUnsignedChar
	case CTypeUnsignedShort:
		return transport.TypeUnsignedShort
	case CTypeUnsignedLong:
		return transport.TypeUnsignedLong
	case CTypeUnsigned:
		return transport.TypeUnsigned
	case CTypeFloat:
		return transport.TypeFloat
	case CTypeDouble:
		return transport.TypeDouble
	case CTypeLongDouble:
		return transport.TypeLongDouble
	case CTypeByte:
		return transport.TypeByte
	case CTypeLongLong:
		return transport.TypeLongLong
	case CTypeUnsignedLongLong:
		return transport.TypeUnsignedLongLong
	case CTypeUserDefined:
		return transport.TypeUser
	default:
		return transport.TypeInvalid
	}
}
