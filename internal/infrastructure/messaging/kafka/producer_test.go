package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/internal/config"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
)

func TestNewProducerWiresWriterFromConfig(t *testing.T) {
	p := NewProducer(config.KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Acks:         "one",
		MaxRetries:   5,
		RetryBackoff: 250 * time.Millisecond,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}, logging.NewNop())
	defer p.Close()

	require.NotNil(t, p.writer)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
	assert.Equal(t, 5, p.writer.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, p.writer.BatchTimeout)
	assert.Equal(t, 5*time.Second, p.writer.WriteTimeout)
	assert.Equal(t, 250*time.Millisecond, p.writer.WriteBackoffMin)
	assert.Equal(t, 250*time.Millisecond, p.writer.WriteBackoffMax)
}

func TestRequiredAcksMapping(t *testing.T) {
	assert.Equal(t, kafka.RequireNone, requiredAcks("none"))
	assert.Equal(t, kafka.RequireOne, requiredAcks("one"))
	assert.Equal(t, kafka.RequireAll, requiredAcks("all"))
	assert.Equal(t, kafka.RequireAll, requiredAcks(""))
}

func TestTopicRoutingLiteralNames(t *testing.T) {
	assert.Equal(t, TopicAlertCreated, topicFor("alert.created"))
	assert.Equal(t, TopicAlertTransitioned, topicFor("alert.transitioned"))
	assert.Equal(t, TopicChangeDetected, topicFor("change.detected"))
	assert.Equal(t, TopicCheckFailed, topicFor("check.failed"))
	assert.Equal(t, "kyb.events.unrouted", topicFor("something.else"))
}
