// Package metrics holds the Prometheus collectors exported on the monitoring server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded for every inbound message.
const (
	OutcomeReplied   = "replied"
	OutcomeDuplicate = "duplicate"
	OutcomeFiltered  = "filtered"
	OutcomeFailed    = "failed"
)

// StatusOther is the label for delivery states outside the Cloud API's documented set.
const StatusOther = "other"

var knownStatuses = map[string]struct{}{
	"sent":      {},
	"delivered": {},
	"read":      {},
	"failed":    {},
	"deleted":   {},
}

// StatusLabel maps a status value from an event onto a bounded label set.
func StatusLabel(status string) string {
	if _, ok := knownStatuses[status]; ok {
		return status
	}
	return StatusOther
}

var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "whatsapp_relay",
		Name:      "events_received_total",
		Help:      "Webhook events acknowledged by the relay.",
	})

	MalformedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "whatsapp_relay",
		Name:      "malformed_events_total",
		Help:      "Webhook events whose body could not be parsed.",
	})

	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whatsapp_relay",
		Name:      "messages_processed_total",
		Help:      "Inbound messages by processing outcome.",
	}, []string{"outcome"})

	StatusesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whatsapp_relay",
		Name:      "statuses_received_total",
		Help:      "Delivery status updates by state.",
	}, []string{"status"})

	RepliesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whatsapp_relay",
		Name:      "replies_sent_total",
		Help:      "Outbound send attempts by result.",
	}, []string{"result"})

	CompletionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "whatsapp_relay",
		Name:      "completion_failures_total",
		Help:      "Text generation calls that fell back to the apology reply.",
	})
)
