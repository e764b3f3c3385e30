package pilot

import "pilotcsp.dev/pilot/pkg/transport"

// BundleKind names which collective shape a Bundle was built for. The
// shape decides which end of each channel must match the narrow process,
// and whether (and how) a Transport communicator backs it.
type BundleKind int

const (
	BundleBroadcast BundleKind = iota
	BundleScatter
	BundleGather
	BundleReduce
	BundleSelect
)

// Bundle groups a set of channels that all share one "narrow" endpoint
// process against many "wide" endpoint processes, backing the four
// collective operations and Select's multi-channel poll (spec §5,
// "Bundle"). Once a channel is bound into a Broadcast, Scatter, Gather or
// Reduce bundle it can no longer be used directly with Write/Read
// (BundledChannel); members of a Select bundle are still written and read
// directly.
type Bundle struct {
	handle
	id    int
	kind  BundleKind
	name  string
	narrow int // the narrow-end process's rank
	chans []*Channel

	// comm is the Transport communicator backing the collective, built
	// over whatever rank set the specific collective needs (see
	// collectives.go and reduce.go for the exact membership per kind).
	// Zero for BundleSelect, which issues no collective calls.
	comm     transport.Comm
	hasComm  bool
	commRoot int // this bundle's root position within comm, if hasComm
}

// Narrow reports the narrow-end rank.
func (b *Bundle) Narrow() int { return b.narrow }

// Channels reports the member channels in creation order.
func (b *Bundle) Channels() []*Channel { return append([]*Channel(nil), b.chans...) }

// buildBundle validates and constructs the common shape behind every
// bundle kind: the narrow process, the member channel list (each must be
// fresh, distinct, and have its narrowSide-designated end equal to
// narrow's rank), and, if commRanks is non-nil, a Transport communicator
// over that rank set with root at commRoot.
func (c *Context) buildBundle(site callSite, op string, kind BundleKind, narrow *Process, chs []*Channel, narrowIsReader bool, commRanks []int, commRoot int) (*Bundle, error) {
	if c.phase != PhaseConfig {
		return nil, c.raise(site, WrongPhase, op, "", "must be called during Config")
	}
	if len(chs) == 0 {
		return nil, c.raise(site, ZeroMembers, op, "", "bundle must have at least one channel")
	}
	if len(c.bundles) >= MaxBundleCount {
		return nil, c.raise(site, MaxBundles, op, "", "bundle table exhausted")
	}
	if !validHandle(&narrow.handle, magicProcess) {
		return nil, c.raise(site, InvalidObj, op, "", "narrow endpoint must be a process from CreateProcess")
	}

	seen := make(map[int]bool, len(chs))
	seenWide := make(map[int]bool, len(chs))
	for _, ch := range chs {
		if !validHandle(&ch.handle, magicChannel) {
			return nil, c.raise(site, NullChannel, op, "", "every member must be a valid channel")
		}
		if ch.bundle != nil {
			return nil, c.raise(site, BundleAlready, op, ch.name, "channel is already a member of another bundle")
		}
		if seen[ch.id] {
			return nil, c.raise(site, BundleDuplicate, op, ch.name, "channel listed twice in the same bundle")
		}
		seen[ch.id] = true

		narrowEnd, wideEnd := ch.writer, ch.reader
		if narrowIsReader {
			narrowEnd, wideEnd = ch.reader, ch.writer
		}
		if seenWide[wideEnd] {
			return nil, c.raise(site, BundleDuplicate, op, ch.name, "a rim rank appears more than once in this bundle")
		}
		seenWide[wideEnd] = true
		if narrowEnd != narrow.rank {
			if narrowIsReader {
				return nil, c.raise(site, BundleReadEnd, op, ch.name, "channel's reader does not match the bundle's narrow process")
			}
			return nil, c.raise(site, BundleWriteEnd, op, ch.name, "channel's writer does not match the bundle's narrow process")
		}
	}

	b := &Bundle{
		handle: handle{tag: magicBundle},
		id:     c.nextBundleID,
		kind:   kind,
		name:   defaultName("B", c.nextBundleID),
		narrow: narrow.rank,
		chans:  append([]*Channel(nil), chs...),
	}
	c.nextBundleID++

	if commRanks != nil {
		comm, err := c.tr.CreateComm(commRanks)
		if err != nil {
			return nil, c.raise(site, TransportError, op, "", err.Error())
		}
		b.comm, b.hasComm, b.commRoot = comm, true, commRoot
	}

	for _, ch := range chs {
		ch.bundle = b
	}
	c.bundles = append(c.bundles, b)
	return b, nil
}
