// Package skywalking is a reference tracer.Tracer that turns Pilot's
// trace event stream into SkyWalking logging-protocol LogData records,
// the way the teacher's own log_builder.go assembles a SniffData packet
// around a LogDataBody before handing it to a reporter. It never dials a
// real OAP backend: Emit is the seam a production reporter would sit
// behind (a Kafka/gRPC sink), left to the caller to supply.
package skywalking

import (
	"fmt"

	common "skywalking.apache.org/repo/goapi/collect/common/v3"
	logging "skywalking.apache.org/repo/goapi/collect/logging/v3"

	"pilotcsp.dev/pilot/pkg/tracer"
)

// Sink receives each built LogData record. A real deployment implements
// this over the SkyWalking logging gRPC service; tests can just collect
// them.
type Sink interface {
	Emit(*logging.LogData)
}

// Adapter is a tracer.Tracer that builds one LogData record per Event and
// hands it to Sink.
type Adapter struct {
	ServiceName     string
	ServiceInstance string
	Sink            Sink
}

func New(serviceName, serviceInstance string, sink Sink) *Adapter {
	return &Adapter{ServiceName: serviceName, ServiceInstance: serviceInstance, Sink: sink}
}

func (a *Adapter) Trace(ev tracer.Event) {
	if a.Sink == nil {
		return
	}
	a.Sink.Emit(a.build(ev))
}

func (a *Adapter) build(ev tracer.Event) *logging.LogData {
	tags := &logging.LogTags{Data: []*common.KeyStringValuePair{
		{Key: "rank", Value: fmt.Sprintf("%d", ev.Rank)},
		{Key: "channel_id", Value: fmt.Sprintf("%d", ev.ChannelID)},
		{Key: "bundle_id", Value: fmt.Sprintf("%d", ev.BundleID)},
	}}
	return &logging.LogData{
		Service:         a.ServiceName,
		ServiceInstance: a.ServiceInstance,
		Timestamp:       ev.TimestampUsec / 1000,
		Endpoint:        string(ev.Kind),
		Body: &logging.LogDataBody{
			Type: "LogDataBodyType_TEXT",
			Content: &logging.LogDataBody_Text{
				Text: &logging.TextLog{Text: ev.Detail},
			},
		},
		Tags: tags,
	}
}
