package pilot

// Channel is a point-to-point link between exactly one writer process and
// exactly one reader process, identified on the wire by a tag unique to
// this Context (spec §4, "Channel"). A channel carries no fixed format:
// each Write/Read call supplies its own format string, checked against
// the other end's by exchanging a signature (internal/wire).
type Channel struct {
	handle
	id     int
	tag    int
	writer int // writer rank
	reader int // reader rank
	name   string
	bundle *Bundle // non-nil once bound into a bundle by one of the Create*Bundle calls
}

// WriterRank and ReaderRank report the two endpoints.
func (ch *Channel) WriterRank() int { return ch.writer }
func (ch *Channel) ReaderRank() int { return ch.reader }

// CreateChannel allocates a new point-to-point channel between writer and
// reader, distinct processes both already created via CreateProcess. Only
// valid in PhaseConfig.
func (c *Context) CreateChannel(writer, reader *Process, name string) (*Channel, error) {
	site := callerSite(1)
	if c.phase != PhaseConfig {
		return nil, c.raise(site, WrongPhase, "CreateChannel", "", "must be called during Config")
	}
	if !validHandle(&writer.handle, magicProcess) || !validHandle(&reader.handle, magicProcess) {
		return nil, c.raise(site, InvalidObj, "CreateChannel", "", "writer/reader must be processes from CreateProcess")
	}
	if writer.rank == reader.rank {
		return nil, c.raise(site, EndpointDuplicate, "CreateChannel", "", "writer and reader must be distinct processes")
	}
	if c.nextChannelID >= maxSubstrateTag {
		return nil, c.raise(site, MaxTags, "CreateChannel", "", "channel tag space exhausted")
	}

	id := c.nextChannelID
	c.nextChannelID++
	ch := &Channel{
		handle: handle{tag: magicChannel},
		id:     id,
		tag:    id, // id == tag outside a selector bundle (spec §8); 0 and negatives are reserved internally, so ids start at 1
		writer: writer.rank,
		reader: reader.rank,
		name:   truncateName(name),
	}
	if ch.name == "" {
		ch.name = defaultName("C", id)
	}
	c.channels = append(c.channels, ch)
	return ch, nil
}

// ChannelDirection selects whether CopyChannels preserves or swaps each
// source channel's endpoints.
type ChannelDirection int

const (
	// Same keeps the copy's writer/reader identical to the source's.
	Same ChannelDirection = iota
	// Reverse swaps the copy's writer and reader relative to the source.
	Reverse
)

// CopyChannels duplicates chs, giving each copy a fresh tag and either the
// same (Same) or swapped (Reverse) writer/reader endpoints, so the same
// topology can be wired again for a second round of bundles, optionally
// turned around, without endpoint churn (spec §4.1, "CopyChannels"). Only
// valid in PhaseConfig.
func (c *Context) CopyChannels(chs []*Channel, direction ChannelDirection) ([]*Channel, error) {
	site := callerSite(1)
	if c.phase != PhaseConfig {
		return nil, c.raise(site, WrongPhase, "CopyChannels", "", "must be called during Config")
	}
	out := make([]*Channel, len(chs))
	for i, src := range chs {
		if !validHandle(&src.handle, magicChannel) {
			return nil, c.raise(site, NullChannel, "CopyChannels", "", "every source channel must be valid")
		}
		if c.nextChannelID >= maxSubstrateTag {
			return nil, c.raise(site, MaxTags, "CopyChannels", "", "channel tag space exhausted")
		}
		id := c.nextChannelID
		c.nextChannelID++
		writer, reader := src.writer, src.reader
		if direction == Reverse {
			writer, reader = reader, writer
		}
		out[i] = &Channel{
			handle: handle{tag: magicChannel},
			id:     id,
			tag:    id,
			writer: writer,
			reader: reader,
			name:   defaultName(src.name+"_copy", id),
		}
		c.channels = append(c.channels, out[i])
	}
	return out, nil
}
