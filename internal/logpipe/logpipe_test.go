package logpipe

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotcsp.dev/pilot/pkg/transport"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := Record{Rank: 3, TimestampUsec: 1234567, Text: "hello world"}
	buf := Encode(r)
	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	r := Record{Rank: 1, TimestampUsec: 1, Text: "abc"}
	buf := Encode(r)
	_, err := Decode(buf[:len(buf)-1])
	require.Error(t, err)
}

func TestDecodeEmptyText(t *testing.T) {
	r := Record{Rank: 0, TimestampUsec: 0, Text: ""}
	buf := Encode(r)
	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "", got.Text)
}

// sequencedTransport is a minimal transport.Transport stand-in that feeds
// Aux.Run a fixed queue of record frames from one source rank, followed
// by a Fin on the same rank. Besides Rank and Size it only implements what
// Run actually calls (Probe, Recv); every other method panics.
type sequencedTransport struct {
	pending []Record
	pos     int
	finSent bool
}

func (s *sequencedTransport) Rank() int { return 1 }
func (s *sequencedTransport) Size() int { return 3 }

func (s *sequencedTransport) Probe(source, tag int, block bool) (bool, int, error) {
	switch tag {
	case FinTag:
		return s.finSent && s.pos >= len(s.pending), source, nil
	case RecordTag:
		return s.pos < len(s.pending), source, nil
	default:
		return false, -1, nil
	}
}

func (s *sequencedTransport) Recv(source, tag int) (transport.Message, error) {
	switch tag {
	case FinTag:
		return transport.Message{}, nil
	case RecordTag:
		r := s.pending[s.pos]
		s.pos++
		if s.pos == len(s.pending) {
			s.finSent = true
		}
		return transport.Message{Value: Encode(r)}, nil
	default:
		panic("unexpected tag")
	}
}

func (s *sequencedTransport) Send(transport.Message, int, int, bool) error { panic("not used") }
func (s *sequencedTransport) Barrier() error                               { panic("not used") }
func (s *sequencedTransport) CreateComm([]int) (transport.Comm, error)     { panic("not used") }
func (s *sequencedTransport) FreeComm(transport.Comm) error                { panic("not used") }
func (s *sequencedTransport) Broadcast(*transport.Message, int, transport.Comm) error {
	panic("not used")
}
func (s *sequencedTransport) Scatter([]any, int, transport.DataType, int, transport.Comm) (any, error) {
	panic("not used")
}
func (s *sequencedTransport) Gather(any, int, transport.DataType, int, transport.Comm) ([]any, error) {
	panic("not used")
}
func (s *sequencedTransport) Reduce(any, int, transport.DataType, transport.ReduceOp, int, transport.Comm) (any, error) {
	panic("not used")
}
func (s *sequencedTransport) Abort(int, string) { panic("not used") }

func TestAuxDrainsUntilWriterFins(t *testing.T) {
	base := t.TempDir() + "/auxtest"

	tr := &sequencedTransport{pending: []Record{
		{Rank: 2, TimestampUsec: 1, Text: "first"},
		{Rank: 2, TimestampUsec: 2, Text: "second"},
	}}
	aux, err := NewAux(tr, base, nil, nil)
	require.NoError(t, err)
	require.NoError(t, aux.Run([]int{2}))

	data, err := os.ReadFile(base + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}
