package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
)

func TestTopicRouting(t *testing.T) {
	assert.Equal(t, TopicAlertCreated, topicFor(monitoring.EventAlertCreated))
	assert.Equal(t, TopicAlertTransitioned, topicFor(monitoring.EventAlertTransitioned))
	assert.Equal(t, TopicChangeDetected, topicFor(monitoring.EventChangeDetected))
	assert.Equal(t, TopicCheckFailed, topicFor(monitoring.EventCheckFailed))
	assert.Equal(t, "kyb.events.unrouted", topicFor("someday.new.event"))
}
