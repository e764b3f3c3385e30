package wire

import "pilotcsp.dev/pilot/pkg/transport"

// IOContext tells the parser whether it is binding values (a write: scalars
// are copied in, arrays are taken by reference) or locations (a read:
// every target is a pointer).
type IOContext int

const (
	Values IOContext = iota
	Locations
)

// Descriptor is one per-message unit produced by parsing a format string.
// It is the Go stand-in for the source's PI_MPI_RTTI: everything downstream
// (messaging primitives, signature fold) consumes a []Descriptor instead of
// walking the raw argument list again.
type Descriptor struct {
	// Value holds the data: in Values context, the scalar (already
	// narrowed per the widening-reversal table) or the array/string; in
	// Locations context, the caller's pointer itself (validated by
	// validatePointer), so the binder can reflect.Set through it in place.
	Value any

	Count int
	CType CType
	Op    transport.ReduceOp

	IsSendCount bool // this descriptor is the "%^"/"%s" length preamble
	Variable    bool // this is the data descriptor of a "^" or "%s" term (also set on the read-side "%s" preamble)
	IsString    bool
}

// DataType is the wire-relevant type for this descriptor.
func (d Descriptor) DataType() transport.DataType { return d.CType.dataType() }
