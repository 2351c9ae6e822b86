package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/casinobroker/platform/internal/domain"
)

func TestNewPublisherDefaultsPollIntervalAndBatchSize(t *testing.T) {
	p := NewPublisher(nil, nil, []string{"localhost:9092"}, "casino", 0, 0, nil)
	assert.Equal(t, defaultPollInterval, p.pollInterval)
	assert.Equal(t, defaultBatchSize, p.batchSize)
}

func TestNewPublisherHonorsExplicitValues(t *testing.T) {
	p := NewPublisher(nil, nil, []string{"localhost:9092"}, "casino", 5*time.Second, 10, nil)
	assert.Equal(t, 5*time.Second, p.pollInterval)
	assert.Equal(t, 10, p.batchSize)
}

func TestTopicFor(t *testing.T) {
	p := NewPublisher(nil, nil, []string{"localhost:9092"}, "casino", 0, 0, nil)
	assert.Equal(t, "casino.wallet", p.topicFor(domain.AggregateType("wallet")))
}
