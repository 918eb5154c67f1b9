package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, ParseBrokers(" k1:9092, ,k2:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestNewPublisher(t *testing.T) {
	_, err := NewPublisher(" , ", "orders")
	assert.Error(t, err)

	p, err := NewPublisher("localhost:9092", "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", p.writer.Topic)
	require.NoError(t, p.Close())
}
