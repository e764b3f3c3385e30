// Package tracer defines the optional trace/visualization event sink Pilot
// forwards structured events to when the 'j' service is enabled (spec §6).
// Pilot never interprets these events; it only produces them.
package tracer

// EventKind names the kind of trace event being reported.
type EventKind string

const (
	EventWrite     EventKind = "write"
	EventRead      EventKind = "read"
	EventBroadcast EventKind = "broadcast"
	EventScatter   EventKind = "scatter"
	EventGather    EventKind = "gather"
	EventReduce    EventKind = "reduce"
	EventSelect    EventKind = "select"
	EventConfigure EventKind = "configure"
)

// Event is one structured record Pilot hands to a Tracer.
type Event struct {
	Kind      EventKind
	Rank      int
	ChannelID int
	BundleID  int
	TimestampUsec int64
	Detail    string
}

// Tracer receives the event stream for external visualization. It must
// not block the caller for long; Pilot calls it synchronously from the
// messaging primitive that produced the event.
type Tracer interface {
	Trace(Event)
}

// Noop discards every event; it's the default when the 'j' service is
// disabled.
type Noop struct{}

func (Noop) Trace(Event) {}
