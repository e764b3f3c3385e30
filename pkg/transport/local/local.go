// Package local is a reference Transport implementation that runs an
// entire Pilot world in-process, one goroutine per rank, message queues
// standing in for the substrate's point-to-point and collective calls.
// It is what this repo's tests and cmd/pilotctl's demo topologies run on;
// a production deployment supplies its own transport.Transport (e.g. over
// a real distributed runtime) instead.
package local

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"

	"pilotcsp.dev/pilot/pkg/transport"
)

const queueDepth = 64

// lanes shards the queue table the way the teacher's eventbus shards
// partitions by a hash of the routing key, to keep a single mutex from
// serializing every channel's traffic.
const lanes = 16

type qkey struct {
	src, dst, tag int
}

func (k qkey) lane() int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d:%d:%d", k.src, k.dst, k.tag)
	return int(h.Sum32()) % lanes
}

// World is the shared state behind every rank's Local transport handle.
type World struct {
	size int

	lane [lanes]struct {
		mu   sync.Mutex
		q    map[qkey]chan transport.Message
	}

	commMu sync.Mutex
	comms  []commInfo

	barMu  sync.Mutex
	barN   int
	barCh  chan struct{}
}

type commInfo struct {
	ranks []int // world ranks, index 0 is the communicator's local root
}

// NewWorld creates a world of the given size. Call Rank(r) once per rank
// to obtain that rank's Transport handle.
func NewWorld(size int) *World {
	w := &World{size: size, barCh: make(chan struct{})}
	for i := range w.lane {
		w.lane[i].q = make(map[qkey]chan transport.Message)
	}
	return w
}

// Rank returns the Transport handle for world rank r.
func (w *World) Rank(r int) transport.Transport {
	return &Local{world: w, rank: r}
}

func (w *World) queue(k qkey) chan transport.Message {
	l := &w.lane[k.lane()]
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.q[k]
	if !ok {
		ch = make(chan transport.Message, queueDepth)
		l.q[k] = ch
	}
	return ch
}

// Local is one rank's view of a World.
type Local struct {
	world   *World
	rank    int
	commSeq int // number of CreateComm calls this rank has made
}

func (c *Local) Rank() int { return c.rank }
func (c *Local) Size() int { return c.world.size }

func (c *Local) Send(msg transport.Message, dest, tag int, _ bool) error {
	// sync is ignored: every queue is buffered (queueDepth), so Send
	// returns as soon as the message is queued, whether or not the
	// receiver has posted its Recv.
	c.world.queue(qkey{src: c.rank, dst: dest, tag: tag}) <- msg
	return nil
}

func (c *Local) Recv(source, tag int) (transport.Message, error) {
	msg := <-c.world.queue(qkey{src: source, dst: c.rank, tag: tag})
	return msg, nil
}

func (c *Local) Probe(source, tag int, block bool) (bool, int, error) {
	ch := c.world.queue(qkey{src: source, dst: c.rank, tag: tag})
	// Only this rank receives from this queue, so checking its length
	// leaves the message at the head for the following Recv (probe must
	// not consume the message).
	if block {
		for len(ch) == 0 {
			runtime.Gosched()
		}
		return true, source, nil
	}
	if len(ch) > 0 {
		return true, source, nil
	}
	return false, -1, nil
}

func (c *Local) Barrier() error {
	w := c.world
	w.barMu.Lock()
	ch := w.barCh
	w.barN++
	if w.barN == w.size {
		w.barN = 0
		w.barCh = make(chan struct{})
		close(ch)
		w.barMu.Unlock()
		return nil
	}
	w.barMu.Unlock()
	<-ch
	return nil
}

// CreateComm relies on every rank making the same sequence of CreateComm
// calls (each rank replays the same topology build), so the n-th call on
// every rank names the same communicator. Handles start at 1, leaving
// Comm(0) to mean "no communicator".
func (c *Local) CreateComm(ranks []int) (transport.Comm, error) {
	w := c.world
	w.commMu.Lock()
	defer w.commMu.Unlock()
	n := c.commSeq
	c.commSeq++
	if n == len(w.comms) {
		w.comms = append(w.comms, commInfo{ranks: append([]int(nil), ranks...)})
	}
	return transport.Comm(n + 1), nil
}

func (c *Local) FreeComm(transport.Comm) error { return nil }

func (c *Local) info(comm transport.Comm) commInfo {
	w := c.world
	w.commMu.Lock()
	defer w.commMu.Unlock()
	return w.comms[int(comm)-1]
}

// collTag derives a reserved internal tag for collective traffic on comm,
// disjoint from every user channel tag (which start at 1 and are always
// non-negative).
func collTag(comm transport.Comm, salt int) int {
	return -1000 - int(comm)*10 - salt
}

func (c *Local) Broadcast(msg *transport.Message, root int, comm transport.Comm) error {
	ci := c.info(comm)
	rootRank := ci.ranks[root]
	tag := collTag(comm, 1)
	if c.rank == rootRank {
		for i, r := range ci.ranks {
			if i == root {
				continue
			}
			if err := c.Send(*msg, r, tag, false); err != nil {
				return err
			}
		}
		return nil
	}
	got, err := c.Recv(rootRank, tag)
	if err != nil {
		return err
	}
	*msg = got
	return nil
}

func (c *Local) Scatter(send []any, recvCount int, dtype transport.DataType, root int, comm transport.Comm) (any, error) {
	ci := c.info(comm)
	rootRank := ci.ranks[root]
	tag := collTag(comm, 2)
	if c.rank == rootRank {
		for i, r := range ci.ranks {
			if i == root {
				continue
			}
			m := transport.Message{Value: send[i], Count: recvCount, Type: dtype}
			if err := c.Send(m, r, tag, false); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	got, err := c.Recv(rootRank, tag)
	if err != nil {
		return nil, err
	}
	return got.Value, nil
}

func (c *Local) Gather(sendVal any, count int, dtype transport.DataType, root int, comm transport.Comm) ([]any, error) {
	ci := c.info(comm)
	rootRank := ci.ranks[root]
	tag := collTag(comm, 3)
	if c.rank == rootRank {
		out := make([]any, len(ci.ranks))
		for i, r := range ci.ranks {
			if i == root {
				continue
			}
			got, err := c.Recv(r, tag)
			if err != nil {
				return nil, err
			}
			out[i] = got.Value
		}
		return out, nil
	}
	m := transport.Message{Value: sendVal, Count: count, Type: dtype}
	if err := c.Send(m, rootRank, tag, false); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Local) Reduce(sendVal any, count int, dtype transport.DataType, op transport.ReduceOp, root int, comm transport.Comm) (any, error) {
	ci := c.info(comm)
	rootRank := ci.ranks[root]
	tag := collTag(comm, 4)
	if c.rank == rootRank {
		acc := sendVal
		for i, r := range ci.ranks {
			if i == root {
				continue
			}
			got, err := c.Recv(r, tag)
			if err != nil {
				return nil, err
			}
			acc = op.Func(acc, got.Value)
		}
		return acc, nil
	}
	m := transport.Message{Value: sendVal, Count: count, Type: dtype}
	if err := c.Send(m, rootRank, tag, false); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Local) Abort(code int, msg string) {
	panic(fmt.Sprintf("transport abort (code %d): %s", code, msg))
}
