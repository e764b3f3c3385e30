// Package deadlock defines the Detector hook a Context accepts through
// WithDetector and hands to the log pipeline's aux process. The aux
// process keeps the Detector but never calls Report, so no wait-state
// reports reach it. No detection algorithm lives here either.
package deadlock

// WaitState is one rank's current blocking-call report.
type WaitState struct {
	Rank      int
	ChannelID int
	BundleID  int
	Op        string
	SinceUsec int64
}

// Detector consumes wait-state reports. The aux process stores the
// Detector it is given and does not call Report.
type Detector interface {
	Report(WaitState)
}

// Noop discards every report; it's the default when the 'd' service is
// disabled.
type Noop struct{}

func (Noop) Report(WaitState) {}
