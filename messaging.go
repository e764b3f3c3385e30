package pilot

import (
	"fmt"

	"pilotcsp.dev/pilot/internal/wire"
	"pilotcsp.dev/pilot/pkg/transport"
)

// Write sends one message on ch, binding args against format the way the
// source's PI_Write/pi_write_ would (spec §4.2). format and args together
// produce the same descriptor vector on both ends; when the Context's
// check level requires it, a signature fold of that vector is exchanged
// first so a mismatched format is caught before any payload crosses.
func (c *Context) Write(ch *Channel, format string, args ...any) error {
	site := callerSite(1)
	if err := c.checkEndpoint(site, "Write", ch, ch.writer, EndpointWriter); err != nil {
		return err
	}

	descs, werr := wire.Parse(wire.Values, format, args)
	if werr != nil {
		return c.raiseWire(site, "Write", werr)
	}

	if c.checkLevel >= 2 {
		sig := wire.Signature(descs)
		if err := c.tr.Send(transport.Message{Value: sig}, ch.reader, ch.tag, false); err != nil {
			return c.raise(site, TransportError, "Write", ch.name, err.Error())
		}
	}

	for _, d := range descs {
		msg := transport.Message{Value: d.Value, Count: d.Count, Type: d.DataType()}
		if err := c.tr.Send(msg, ch.reader, ch.tag, c.services.Deadlock); err != nil {
			return c.raise(site, TransportError, "Write", ch.name, err.Error())
		}
	}

	c.traceAndLog("Write", ch, format)
	return nil
}

// Read receives one message on ch, binding it against format the way the
// source's PI_Read/pi_read_ would. Every scalar, "^" or "%s" term in a
// Locations-context format must resolve to a non-nil pointer (spec §4.2,
// "Pointer validation"), and wire.Parse rejects anything else before Read
// ever touches the Transport; a fixed-length array term takes the
// caller's pre-sized slice instead.
func (c *Context) Read(ch *Channel, format string, args ...any) error {
	site := callerSite(1)
	if err := c.checkEndpoint(site, "Read", ch, ch.reader, EndpointReader); err != nil {
		return err
	}

	descs, werr := wire.Parse(wire.Locations, format, args)
	if werr != nil {
		return c.raiseWire(site, "Read", werr)
	}

	if c.checkLevel >= 2 {
		got, err := c.tr.Recv(ch.writer, ch.tag)
		if err != nil {
			return c.raise(site, TransportError, "Read", ch.name, err.Error())
		}
		theirSig, _ := got.Value.(uint32)
		if theirSig != wire.Signature(descs) {
			return c.raise(site, FormatMismatch, "Read", ch.name, "writer's format does not match this read")
		}
	}

	for _, d := range descs {
		msg, err := c.tr.Recv(ch.writer, ch.tag)
		if err != nil {
			return c.raise(site, TransportError, "Read", ch.name, err.Error())
		}
		if d.IsSendCount && d.Value == nil {
			// "%s"'s length preamble is stored internally, not exposed to
			// the caller (spec §4.2); just drain it off the wire.
			continue
		}
		var bindErr error
		if d.Count > 1 && !d.Variable {
			// A fixed-size array target is the caller's pre-sized slice
			// itself, taken by reference just like the write side; a
			// pointer is only needed where the length isn't known until
			// the message arrives (scalars, and variable-length arrays).
			bindErr = wire.CopyInto(d.Value, msg.Value)
		} else {
			bindErr = wire.Bind(d.Value, msg.Value)
		}
		if bindErr != nil {
			return c.raise(site, BogusPointerArg, "Read", ch.name, bindErr.Error())
		}
	}

	c.traceAndLog("Read", ch, format)
	return nil
}

// checkEndpoint runs the phase/handle/endpoint-role/bundling checks
// common to Write and Read.
func (c *Context) checkEndpoint(site callSite, op string, ch *Channel, wantRank int, wrongRole Code) error {
	if c.phase != PhaseRunning {
		return c.raise(site, WrongPhase, op, "", "must be called during Running")
	}
	if !validHandle(&ch.handle, magicChannel) {
		return c.raise(site, NullChannel, op, "", "not a valid channel")
	}
	if ch.bundle != nil && ch.bundle.kind != BundleSelect {
		return c.raise(site, BundledChannel, op, ch.name, "channel is a bundle member; use the bundle operation instead")
	}
	if c.rank != wantRank {
		return c.raise(site, wrongRole, op, ch.name, "this rank is not this channel's assigned endpoint")
	}
	return nil
}

func (c *Context) traceAndLog(op string, ch *Channel, format string) {
	if c.services.Trace {
		c.tracer.Trace(traceEvent(op, c.rank, ch.id, -1, format))
	}
	if c.services.Calls && c.logWriter != nil {
		c.logWriter.Write(fmt.Sprintf("%s ch=%s format=%q", op, ch.name, format), c.services.Deadlock)
	}
}
