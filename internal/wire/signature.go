package wire

import "pilotcsp.dev/pilot/pkg/transport"

// referenceOp is the op every builtin reduce op's code is encoded relative
// to, standing in for the source's "signed pointer delta from a reference
// op" (we have no cross-process pointers; the enum distance is just as
// stable across ranks since both sides run the same binary's op table).
const referenceOp = transport.OpMin

// userOpConstant is the fixed code substituted for any user-defined
// (heap-allocated, in the original) reduce operator: the parties are
// presumed to be using the same user op, so no real identity needs to
// cross the wire.
const userOpConstant = 999

func opCode(op transport.ReduceOp) int {
	switch {
	case op.Code == transport.OpNone:
		return 0
	case op.Code == transport.OpUser:
		return userOpConstant
	default:
		return op.Code - referenceOp
	}
}

// Signature folds a parsed descriptor list into a 32-bit fingerprint used
// to cross-validate a writer's and a reader's format before any payload
// crosses the wire (spec §4.2, "Signature computation"). It is a
// compaction, not a hash: the only goal is catching common format
// mismatches, not collision resistance.
func Signature(descs []Descriptor) uint32 {
	var sig uint32
	for _, d := range descs {
		if d.IsSendCount {
			continue
		}
		var word uint32
		word |= uint32(d.CType) & 0x1F
		if d.Op.Code != transport.OpNone {
			word |= 1 << 5
		}
		if d.Variable {
			word |= 1 << 6
		}
		// A variable-length term's count is only known to the writer (the
		// reader learns it from the preamble), so it stays out of the fold.
		count := d.Count
		if d.Variable {
			count = 0
		}
		upper := uint32(count+opCode(d.Op)) & 0x1FFFFF
		word |= upper << 7
		sig = (sig << 3) ^ word
	}
	return sig
}
