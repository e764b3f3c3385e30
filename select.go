package pilot

// CreateSelectBundle groups chs (all having reader == narrow's rank) so
// narrow can poll all of them as one operation (spec §5, "Select
// bundle"). It backs no collective call and so builds no Transport
// communicator.
func (c *Context) CreateSelectBundle(narrow *Process, chs []*Channel) (*Bundle, error) {
	site := callerSite(1)
	return c.buildBundle(site, "CreateSelectBundle", BundleSelect, narrow, chs, true, nil, 0)
}

// Select blocks until at least one member channel of b has a message
// waiting, then returns it without consuming the message (spec §5,
// "Select"). The caller follows up with Read on the returned channel.
func (c *Context) Select(b *Bundle) (*Channel, error) {
	site := callerSite(1)
	if err := c.checkBundleOp(site, "Select", b, BundleSelect); err != nil {
		return nil, err
	}
	for {
		if ch, ok, err := c.pollMembers(site, "Select", b); err != nil {
			return nil, err
		} else if ok {
			return ch, nil
		}
	}
}

// TrySelect is the non-blocking form of Select: it returns (nil, false,
// nil) immediately if no member has data yet.
func (c *Context) TrySelect(b *Bundle) (*Channel, bool, error) {
	site := callerSite(1)
	if err := c.checkBundleOp(site, "TrySelect", b, BundleSelect); err != nil {
		return nil, false, err
	}
	return c.pollMembers(site, "TrySelect", b)
}

func (c *Context) pollMembers(site callSite, op string, b *Bundle) (*Channel, bool, error) {
	for _, ch := range b.chans {
		ok, _, err := c.tr.Probe(ch.writer, ch.tag, false)
		if err != nil {
			return nil, false, c.raise(site, TransportError, op, b.name, err.Error())
		}
		if ok {
			return ch, true, nil
		}
	}
	return nil, false, nil
}

// ChannelHasData reports whether ch has a message waiting, without
// consuming it and without requiring ch to be part of a bundle (spec §5,
// "ChannelHasData").
func (c *Context) ChannelHasData(ch *Channel) (bool, error) {
	site := callerSite(1)
	if c.phase != PhaseRunning {
		return false, c.raise(site, WrongPhase, "ChannelHasData", "", "must be called during Running")
	}
	if !validHandle(&ch.handle, magicChannel) {
		return false, c.raise(site, NullChannel, "ChannelHasData", "", "not a valid channel")
	}
	ok, _, err := c.tr.Probe(ch.writer, ch.tag, false)
	if err != nil {
		return false, c.raise(site, TransportError, "ChannelHasData", ch.name, err.Error())
	}
	return ok, nil
}
