// Package kafka emits the engine's notification events to Kafka.  The engine
// guarantees emission; delivery to connected clients is a downstream
// consumer's concern.
package kafka

import "github.com/turtacn/KYB-Sentinel/internal/application/monitoring"

// Topic names, one per notification event type.
const (
	TopicAlertCreated      = "kyb.alert.created"
	TopicAlertTransitioned = "kyb.alert.transitioned"
	TopicChangeDetected    = "kyb.change.detected"
	TopicCheckFailed       = "kyb.check.failed"
)

// topicFor maps an event type to its topic.  Unmapped types land on the
// dead-letter topic so schema drift is visible instead of silent.
func topicFor(eventType string) string {
	switch eventType {
	case monitoring.EventAlertCreated:
		return TopicAlertCreated
	case monitoring.EventAlertTransitioned:
		return TopicAlertTransitioned
	case monitoring.EventChangeDetected:
		return TopicChangeDetected
	case monitoring.EventCheckFailed:
		return TopicCheckFailed
	default:
		return "kyb.events.unrouted"
	}
}
