// Package logpipe implements the dedicated logging/deadlock-detection aux
// process described in spec §4.7: when any of the 'c'/'d'/'j' services is
// enabled, world rank 1 is reserved for it instead of running application
// work, and every other rank's messaging-call records (written when the
// 'c' service is on) are framed and shipped to it instead of written
// locally.
package logpipe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"pilotcsp.dev/pilot/pkg/deadlock"
	"pilotcsp.dev/pilot/pkg/tracer"
	"pilotcsp.dev/pilot/pkg/transport"
)

// Reserved tags for aux-process traffic, disjoint from both user channel
// tags (>= 1) and the reference transport's collective tags (<= -1000).
const (
	RecordTag = -1
	FinTag    = -2
)

// Record is one framed log line crossing the wire to the aux process.
type Record struct {
	Rank          int
	TimestampUsec int64
	Text          string
}

// Encode renders a Record as a length-prefixed frame:
//
//	4B rank | 8B timestamp (usec) | 4B text length | text bytes
func Encode(r Record) []byte {
	buf := make([]byte, 16+len(r.Text))
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.Rank))
	binary.BigEndian.PutUint64(buf[4:12], uint64(r.TimestampUsec))
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(r.Text)))
	copy(buf[16:], r.Text)
	return buf
}

// Decode parses a frame produced by Encode.
func Decode(buf []byte) (Record, error) {
	if len(buf) < 16 {
		return Record{}, fmt.Errorf("logpipe: frame too short (%d bytes)", len(buf))
	}
	n := binary.BigEndian.Uint32(buf[12:16])
	if len(buf) != 16+int(n) {
		return Record{}, fmt.Errorf("logpipe: frame length mismatch: header says %d, got %d", n, len(buf)-16)
	}
	return Record{
		Rank:          int(binary.BigEndian.Uint32(buf[0:4])),
		TimestampUsec: int64(binary.BigEndian.Uint64(buf[4:12])),
		Text:          string(buf[16:]),
	}, nil
}

// Writer is what application ranks use to ship a log line to the aux
// process instead of writing it locally.
type Writer struct {
	tr   transport.Transport
	rank int
}

func NewWriter(tr transport.Transport) *Writer {
	return &Writer{tr: tr, rank: tr.Rank()}
}

// Write ships text to the aux process (always world rank 1). sync mirrors
// the deadlock-detection requirement from spec §4.7: when enabled, the
// Send must not return before rank 1 has begun receiving, so a blocked
// rank's absence from the log stream is itself observable.
func (w *Writer) Write(text string, sync bool) error {
	r := Record{Rank: w.rank, TimestampUsec: time.Now().UnixMicro(), Text: text}
	return w.tr.Send(transport.Message{Value: Encode(r)}, 1, RecordTag, sync)
}

// Fin signals this rank is done logging; the aux process exits its drain
// loop once every application rank has sent one.
func (w *Writer) Fin() error {
	return w.tr.Send(transport.Message{Value: []byte{}}, 1, FinTag, false)
}

// Aux is the loop world rank 1 runs instead of application work when the
// log pipeline is active.
type Aux struct {
	tr       transport.Transport
	out      *bufio.Writer
	file     *os.File
	detector deadlock.Detector
	tracer   tracer.Tracer
}

// NewAux opens logBase+".log" for the aux process's plain tab-separated
// output, distinct from the ambient operational logger.
func NewAux(tr transport.Transport, logBase string, det deadlock.Detector, tr2 tracer.Tracer) (*Aux, error) {
	f, err := os.Create(logBase + ".log")
	if err != nil {
		return nil, err
	}
	if det == nil {
		det = deadlock.Noop{}
	}
	if tr2 == nil {
		tr2 = tracer.Noop{}
	}
	return &Aux{tr: tr, out: bufio.NewWriter(f), file: f, detector: det, tracer: tr2}, nil
}

// Run round-robins a non-blocking Probe over writerRanks (every world rank
// other than the aux process itself, the base included) until each has sent a
// Fin, then flushes and closes the log file. The reference transport has
// no wildcard-source receive, so polling named sources stands in for it;
// a substrate that does offer one could probe it directly instead.
func (a *Aux) Run(writerRanks []int) error {
	defer a.file.Close()
	fins := make(map[int]bool)
	for len(fins) < len(writerRanks) {
		for _, src := range writerRanks {
			if !fins[src] {
				if ok, _, err := a.tr.Probe(src, FinTag, false); err != nil {
					return err
				} else if ok {
					if _, err := a.tr.Recv(src, FinTag); err != nil {
						return err
					}
					fins[src] = true
				}
			}

			ok, _, err := a.tr.Probe(src, RecordTag, false)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			msg, err := a.tr.Recv(src, RecordTag)
			if err != nil {
				return err
			}
			raw, _ := msg.Value.([]byte)
			rec, err := Decode(raw)
			if err != nil {
				continue
			}
			fmt.Fprintf(a.out, "%d\t%d\t%s\n", rec.Rank, rec.TimestampUsec, rec.Text)
		}
	}
	return a.out.Flush()
}
