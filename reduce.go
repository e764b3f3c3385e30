package pilot

import (
	"pilotcsp.dev/pilot/internal/wire"
	"pilotcsp.dev/pilot/pkg/transport"
)

// CreateReduceBundle groups chs (all having reader == narrow's rank) for
// a combining reduction (spec §5, "Reduce bundle"). Unlike Gather, the
// narrow consumer is deliberately excluded from the Transport
// communicator backing the reduction: only the wide writers take part in
// the substrate-level reduce, and the member at commRanks[0] forwards the
// combined result to narrow over chs[0]'s own point-to-point tag
// afterward. This split topology means a substrate that can't address a
// communicator excluding one particular rank still works, since narrow
// never needs to be a member of one.
func (c *Context) CreateReduceBundle(narrow *Process, chs []*Channel) (*Bundle, error) {
	site := callerSite(1)
	writers := make([]int, len(chs))
	for i, ch := range chs {
		writers[i] = ch.writer
	}
	return c.buildBundle(site, "CreateReduceBundle", BundleReduce, narrow, chs, true, writers, 0)
}

// Reduce is called by the narrow consumer (which fixes the expected
// per-writer shape via format/args but contributes no value of its own)
// and by every wide writer, which passes its own contribution through
// format/args. The narrow side's return value is the combined result;
// every writer gets nil. "^" and "%s" are rejected, matching
// Scatter/Gather.
//
// Reduce's signature protocol is split, not the common bundle-broadcast
// shape every other collective uses (spec §4.5, point 2): writers agree
// among themselves first (rim position 0 broadcasts over the writers-only
// communicator), then rim position 0 separately forwards the signature to
// the narrow consumer point-to-point on the first channel's tag, since
// narrow was never a member of that communicator.
func (c *Context) Reduce(b *Bundle, format string, op transport.ReduceOp, args ...any) (any, error) {
	site := callerSite(1)
	if err := c.checkBundleOp(site, "Reduce", b, BundleReduce); err != nil {
		return nil, err
	}
	if len(b.chans) == 0 {
		return nil, c.raise(site, ZeroMembers, "Reduce", b.name, "bundle has no members")
	}
	forward := b.chans[0]
	isNarrow := c.rank == b.narrow

	if len(args) != 1 {
		return nil, c.raise(site, FormatArgs, "Reduce", b.name, "must supply exactly one value (a shape sample on the narrow end)")
	}
	descs, werr := wire.Parse(wire.Values, format, args)
	if werr != nil {
		return nil, c.raiseWire(site, "Reduce", werr)
	}
	if len(descs) != 1 || descs[0].Variable {
		return nil, c.raise(site, FormatInvalid, "Reduce", b.name, "reduce disallows variable-length/%s formats")
	}
	d := descs[0]
	sig := wire.Signature(descs)

	if isNarrow {
		if c.checkLevel >= 2 {
			got, err := c.tr.Recv(forward.writer, forward.tag)
			if err != nil {
				return nil, c.raise(site, TransportError, "Reduce", b.name, err.Error())
			}
			theirSig, _ := got.Value.(uint32)
			if theirSig != sig {
				return nil, c.raise(site, FormatMismatch, "Reduce", b.name, "a writer's format does not match this reduce's")
			}
		}
		msg, err := c.tr.Recv(forward.writer, forward.tag)
		if err != nil {
			return nil, c.raise(site, TransportError, "Reduce", b.name, err.Error())
		}
		c.traceAndLogBundle("Reduce", b)
		return msg.Value, nil
	}

	if c.checkLevel >= 2 {
		sigMsg := transport.Message{Value: sig}
		if err := c.tr.Broadcast(&sigMsg, b.commRoot, b.comm); err != nil {
			return nil, c.raise(site, TransportError, "Reduce", b.name, err.Error())
		}
		theirSig, _ := sigMsg.Value.(uint32)
		if theirSig != sig {
			return nil, c.raise(site, FormatMismatch, "Reduce", b.name, "writers disagree on this reduce's format")
		}
		if c.rank == forward.writer {
			if err := c.tr.Send(transport.Message{Value: sig}, b.narrow, forward.tag, false); err != nil {
				return nil, c.raise(site, TransportError, "Reduce", b.name, err.Error())
			}
		}
	}

	result, err := c.tr.Reduce(d.Value, d.Count, d.DataType(), op, b.commRoot, b.comm)
	if err != nil {
		return nil, c.raise(site, TransportError, "Reduce", b.name, err.Error())
	}
	if c.rank == forward.writer {
		if err := c.tr.Send(transport.Message{Value: result, Count: d.Count, Type: d.DataType()}, b.narrow, forward.tag, false); err != nil {
			return nil, c.raise(site, TransportError, "Reduce", b.name, err.Error())
		}
	}
	c.traceAndLogBundle("Reduce", b)
	return nil, nil
}
