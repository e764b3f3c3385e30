package pilot

import (
	"pilotcsp.dev/pilot/internal/wire"
	"pilotcsp.dev/pilot/pkg/transport"
)

// CreateBroadcastBundle groups chs (all having writer == narrow's rank)
// so narrow can broadcast one value to every channel's reader in a single
// call (spec §5, "Broadcast bundle"). Member order fixes each reader's
// position for later Broadcast calls.
func (c *Context) CreateBroadcastBundle(narrow *Process, chs []*Channel) (*Bundle, error) {
	site := callerSite(1)
	return c.buildBundle(site, "CreateBroadcastBundle", BundleBroadcast, narrow, chs, false, commRanksFor(narrow, chs, false), 0)
}

// CreateScatterBundle groups chs the same way as Broadcast, but members
// receive distinct values in a single Scatter call (spec §5, "Scatter
// bundle").
func (c *Context) CreateScatterBundle(narrow *Process, chs []*Channel) (*Bundle, error) {
	site := callerSite(1)
	return c.buildBundle(site, "CreateScatterBundle", BundleScatter, narrow, chs, false, commRanksFor(narrow, chs, false), 0)
}

// CreateGatherBundle groups chs (all having reader == narrow's rank) so
// narrow can collect one value from every member in a single call (spec
// §5, "Gather bundle").
func (c *Context) CreateGatherBundle(narrow *Process, chs []*Channel) (*Bundle, error) {
	site := callerSite(1)
	return c.buildBundle(site, "CreateGatherBundle", BundleGather, narrow, chs, true, commRanksFor(narrow, chs, true), 0)
}

// commRanksFor builds the Transport communicator's rank list with narrow
// at position 0 (the collective root), followed by each channel's wide
// end in member order.
func commRanksFor(narrow *Process, chs []*Channel, narrowIsReader bool) []int {
	ranks := make([]int, 0, len(chs)+1)
	ranks = append(ranks, narrow.rank)
	for _, ch := range chs {
		if narrowIsReader {
			ranks = append(ranks, ch.writer)
		} else {
			ranks = append(ranks, ch.reader)
		}
	}
	return ranks
}

// exchangeBundleSignature implements the check-level-≥2 collective
// signature protocol common to Broadcast/Scatter/Gather (spec §4.4: "If
// check level ≥ 2, exchange signatures using the bundle's communicator
// (narrow end broadcasts, rim validates)"). Reduce uses its own variant
// (see reduce.go) since the narrow end sits outside its communicator.
func (c *Context) exchangeBundleSignature(site callSite, op string, b *Bundle, isNarrow bool, sig uint32) error {
	msg := transport.Message{Value: sig}
	if err := c.tr.Broadcast(&msg, b.commRoot, b.comm); err != nil {
		return c.raise(site, TransportError, op, b.name, err.Error())
	}
	if !isNarrow {
		theirSig, _ := msg.Value.(uint32)
		if theirSig != sig {
			return c.raise(site, FormatMismatch, op, b.name, "writer's format does not match this collective's")
		}
	}
	return nil
}

// Broadcast is called by every member of b (the narrow writer and every
// wide reader). format/args are parsed the same way Write/Read parse
// theirs (spec §4.4): the narrow side binds Values, every wide side binds
// Locations. "^" and "%s" are both allowed here — per spec §4.4, "For
// Broadcast with '^'/'%s', the length preamble is a normal broadcast that
// the rim stores, then uses to allocate the data buffer before the data
// broadcast" — unlike Scatter/Gather/Reduce, which disallow them.
func (c *Context) Broadcast(b *Bundle, format string, args ...any) error {
	site := callerSite(1)
	if err := c.checkBundleOp(site, "Broadcast", b, BundleBroadcast); err != nil {
		return err
	}
	isNarrow := c.rank == b.narrow

	pctx := wire.Locations
	if isNarrow {
		pctx = wire.Values
	}
	descs, werr := wire.Parse(pctx, format, args)
	if werr != nil {
		return c.raiseWire(site, "Broadcast", werr)
	}
	c.traceAndLogBundle("Broadcast", b)

	if c.checkLevel >= 2 {
		if err := c.exchangeBundleSignature(site, "Broadcast", b, isNarrow, wire.Signature(descs)); err != nil {
			return err
		}
	}

	for _, d := range descs {
		msg := transport.Message{Type: d.DataType(), Count: d.Count}
		if isNarrow {
			msg.Value = d.Value
		}
		if err := c.tr.Broadcast(&msg, b.commRoot, b.comm); err != nil {
			return c.raise(site, TransportError, "Broadcast", b.name, err.Error())
		}
		if isNarrow {
			continue
		}
		if d.IsSendCount && d.Value == nil {
			// "%s"'s length preamble isn't exposed to the caller; just
			// absorb the broadcast and move on to the data descriptor.
			continue
		}
		var bindErr error
		if d.Count > 1 && !d.Variable {
			bindErr = wire.CopyInto(d.Value, msg.Value)
		} else {
			bindErr = wire.Bind(d.Value, msg.Value)
		}
		if bindErr != nil {
			return c.raise(site, BogusPointerArg, "Broadcast", b.name, bindErr.Error())
		}
	}
	return nil
}

// Scatter is called by the narrow writer with one value per bundle member
// in member order, and by every wide reader with a pointer to receive its
// own chunk. format fixes the shape every chunk must share; "^" and "%s"
// are rejected (spec §4.4, "Scatter/Gather/Reduce disallow variable-length
// mode").
func (c *Context) Scatter(b *Bundle, format string, args ...any) (any, error) {
	site := callerSite(1)
	if err := c.checkBundleOp(site, "Scatter", b, BundleScatter); err != nil {
		return nil, err
	}
	isNarrow := c.rank == b.narrow

	var shape []wire.Descriptor
	var full []any
	if isNarrow {
		if len(args) != len(b.chans) {
			return nil, c.raise(site, FormatArgs, "Scatter", b.name, "must supply one value per bundle member")
		}
		full = make([]any, len(b.chans)+1)
		for i, a := range args {
			ds, werr := wire.Parse(wire.Values, format, []any{a})
			if werr != nil {
				return nil, c.raiseWire(site, "Scatter", werr)
			}
			if len(ds) != 1 || ds[0].Variable {
				return nil, c.raise(site, FormatInvalid, "Scatter", b.name, "scatter disallows variable-length/%s formats")
			}
			full[i+1] = ds[0].Value
			shape = ds
		}
	} else {
		if len(args) != 1 {
			return nil, c.raise(site, FormatArgs, "Scatter", b.name, "must supply exactly one receive target")
		}
		ds, werr := wire.Parse(wire.Locations, format, args)
		if werr != nil {
			return nil, c.raiseWire(site, "Scatter", werr)
		}
		if len(ds) != 1 || ds[0].Variable {
			return nil, c.raise(site, FormatInvalid, "Scatter", b.name, "scatter disallows variable-length/%s formats")
		}
		shape = ds
	}
	d := shape[0]
	c.traceAndLogBundle("Scatter", b)

	if c.checkLevel >= 2 {
		if err := c.exchangeBundleSignature(site, "Scatter", b, isNarrow, wire.Signature(shape)); err != nil {
			return nil, err
		}
	}

	got, err := c.tr.Scatter(full, d.Count, d.DataType(), b.commRoot, b.comm)
	if err != nil {
		return nil, c.raise(site, TransportError, "Scatter", b.name, err.Error())
	}
	if !isNarrow {
		if bindErr := wire.Bind(d.Value, got); bindErr != nil {
			return nil, c.raise(site, BogusPointerArg, "Scatter", b.name, bindErr.Error())
		}
	}
	return got, nil
}

// Gather is called by the narrow reader, which fixes the expected
// per-member shape via format/args but contributes no value of its own
// (spec §4.4, "root contributes zero"), and by every wide writer, which
// passes its own value through format/args. It returns, on the narrow
// side, one value per member in member order; wide callers get nil.
// "^" and "%s" are rejected, same as Scatter.
func (c *Context) Gather(b *Bundle, format string, args ...any) ([]any, error) {
	site := callerSite(1)
	if err := c.checkBundleOp(site, "Gather", b, BundleGather); err != nil {
		return nil, err
	}
	isNarrow := c.rank == b.narrow
	if len(args) != 1 {
		return nil, c.raise(site, FormatArgs, "Gather", b.name, "must supply exactly one value (a shape sample on the narrow end)")
	}

	shape, werr := wire.Parse(wire.Values, format, args)
	if werr != nil {
		return nil, c.raiseWire(site, "Gather", werr)
	}
	if len(shape) != 1 || shape[0].Variable {
		return nil, c.raise(site, FormatInvalid, "Gather", b.name, "gather disallows variable-length/%s formats")
	}
	d := shape[0]
	var sendVal any
	if !isNarrow {
		sendVal = d.Value
	}
	c.traceAndLogBundle("Gather", b)

	if c.checkLevel >= 2 {
		if err := c.exchangeBundleSignature(site, "Gather", b, isNarrow, wire.Signature(shape)); err != nil {
			return nil, err
		}
	}

	out, err := c.tr.Gather(sendVal, d.Count, d.DataType(), b.commRoot, b.comm)
	if err != nil {
		return nil, c.raise(site, TransportError, "Gather", b.name, err.Error())
	}
	if out == nil {
		return nil, nil
	}
	return out[1:], nil
}

func (c *Context) checkBundleOp(site callSite, op string, b *Bundle, kind BundleKind) error {
	if c.phase != PhaseRunning {
		return c.raise(site, WrongPhase, op, "", "must be called during Running")
	}
	if !validHandle(&b.handle, magicBundle) {
		return c.raise(site, InvalidObj, op, "", "not a valid bundle")
	}
	if b.kind != kind {
		return c.raise(site, BundleUsage, op, b.name, "bundle was not created for this operation")
	}
	isNarrow := c.rank == b.narrow
	if !isNarrow {
		found := false
		for _, ch := range b.chans {
			if ch.writer == c.rank || ch.reader == c.rank {
				found = true
				break
			}
		}
		if !found {
			return c.raise(site, BundleIndex, op, b.name, "this rank is not a member of the bundle")
		}
	}
	return nil
}

func (c *Context) traceAndLogBundle(op string, b *Bundle) {
	if c.services.Trace {
		c.tracer.Trace(traceEvent(op, c.rank, -1, b.id, b.name))
	}
	if c.services.Calls && c.logWriter != nil {
		c.logWriter.Write(op+" bundle="+b.name, c.services.Deadlock)
	}
}
