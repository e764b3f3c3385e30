// Package transport defines the seam between Pilot's coordination engine
// and the underlying message-passing substrate. Pilot treats the substrate
// as opaque: point-to-point send/recv, barrier, and the four collectives,
// plus probe and group/communicator creation. Everything else (rank/tag
// bookkeeping, format marshalling, signature exchange) lives above this
// interface.
package transport

import "errors"

// DataType names the wire-relevant shape of a message payload. Pilot's
// format marshaller assigns one of these to every descriptor; substrates
// that care about binary layout can switch on it, but the reference
// transport in package local just carries the Go value through.
type DataType int

const (
	TypeInvalid DataType = iota
	TypeChar
	TypeShort
	TypeInt
	TypeLong
	TypeUnsignedChar
	TypeUnsignedShort
	TypeUnsignedLong
	TypeUnsigned
	TypeFloat
	TypeDouble
	TypeLongDouble
	TypeByte
	TypeLongLong
	TypeUnsignedLongLong
	TypeUser
)

// ReduceOp names a reduction operator. Built-in ops are assigned stable,
// small codes so Reduce's signature exchange can compare them across ranks
// without sharing pointers (see internal/wire/signature.go). A user-defined
// op (Code == OpUser) carries the actual combining function out of band.
type ReduceOp struct {
	Code int
	Func func(a, b any) any
}

// Built-in reduce operators, matching the op set in the format grammar
// ("min"|"max"|"+"|"*"|"&&"|"||"|"^^"|"&"|"|"|"^").
const (
	OpNone = iota
	OpMin
	OpMax
	OpSum
	OpProd
	OpLAnd
	OpLOr
	OpLXor
	OpBAnd
	OpBOr
	OpBXor
	OpUser = -1
)

// Comm is an opaque handle to a group/communicator created for a
// collective bundle. The zero value denotes "no communicator" (used by
// Select bundles, which probe each member channel's own tag instead of
// creating one).
type Comm int

// Message is one payload crossing the substrate: either a single Go value
// (a scalar write, or a receive target already resolved to its final
// shape) or a slice (an array transfer).
type Message struct {
	Value any
	Count int
	Type  DataType
}

var ErrWouldBlock = errors.New("transport: no message available")

// Transport is the substrate Pilot's coordination engine runs on. A real
// implementation talks to a distributed runtime (MPI-like); package local
// ships an in-process reference implementation used by this repo's tests
// and by cmd/pilotctl's demo topologies.
type Transport interface {
	// Rank and Size report this process's identity in the world.
	Rank() int
	Size() int

	// Send transfers msg to dest on tag. If sync is true the call must not
	// return before the receiver has begun receiving (used when deadlock
	// detection is enabled, so buffering cannot mask a would-be deadlock).
	Send(msg Message, dest, tag int, sync bool) error

	// Recv blocks until a message arrives from source on tag.
	Recv(source, tag int) (Message, error)

	// Probe reports whether a message is available from source on tag.
	// If block is false it returns immediately with ok=false when none is
	// available; the message is never consumed.
	Probe(source, tag int, block bool) (ok bool, actualSource int, err error)

	// Barrier blocks until every rank in the world has called it.
	Barrier() error

	// CreateComm builds a communicator over the given world ranks; ranks[0]
	// becomes the communicator's local rank 0 ("root" for collectives).
	CreateComm(ranks []int) (Comm, error)
	// FreeComm releases a communicator created by CreateComm.
	FreeComm(Comm) error

	// Broadcast, Scatter, Gather and Reduce are the four collectives Pilot
	// builds its bundle operations on top of. root is a communicator-local
	// rank (not a world rank).
	Broadcast(msg *Message, root int, comm Comm) error
	Scatter(send []any, recvCount int, dtype DataType, root int, comm Comm) (any, error)
	Gather(sendVal any, count int, dtype DataType, root int, comm Comm) ([]any, error)
	Reduce(sendVal any, count int, dtype DataType, op ReduceOp, root int, comm Comm) (any, error)

	// Abort terminates the whole process group with the given exit code.
	Abort(code int, msg string)
}
