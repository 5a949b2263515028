package twirc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the client's counters. Malformed input and unmatched
// commands are counted rather than dropped silently, since persistently
// malformed upstream data can desynchronize framing without any other
// signal.
type metrics struct {
	messagesTotal         prometheus.Counter
	malformedTotal        prometheus.Counter
	unknownTotal          prometheus.Counter
	backlogOverflowsTotal prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	factory := promauto.With(registerer)

	return &metrics{
		messagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "twirc",
			Subsystem: "client",
			Name:      "messages_total",
			Help:      "Total number of complete messages decoded",
		}),
		malformedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "twirc",
			Subsystem: "client",
			Name:      "malformed_messages_total",
			Help:      "Total number of messages that decoded without a command",
		}),
		unknownTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "twirc",
			Subsystem: "client",
			Name:      "unknown_commands_total",
			Help:      "Total number of messages routed to the unknown handler",
		}),
		backlogOverflowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "twirc",
			Subsystem: "client",
			Name:      "backlog_overflows_total",
			Help:      "Times the reassembly backlog exceeded its expected bound",
		}),
	}
}
