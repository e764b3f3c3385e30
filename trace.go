package pilot

import (
	"strings"

	"pilotcsp.dev/pilot/pkg/tracer"
)

func traceEvent(op string, rank, channelID, bundleID int, detail string) tracer.Event {
	return tracer.Event{
		Kind:      tracer.EventKind(strings.ToLower(op)),
		Rank:      rank,
		ChannelID: channelID,
		BundleID:  bundleID,
		Detail:    detail,
	}
}
