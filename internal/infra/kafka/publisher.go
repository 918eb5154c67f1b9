package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/infra"

	"github.com/segmentio/kafka-go"
)

// Publisher writes the same envelope as the RabbitMQ publisher to one topic,
// keyed by routing key so events of one kind stay ordered.
type Publisher struct {
	writer *kafka.Writer
}

var _ infra.PublisherInterface = (*Publisher)(nil)

func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewPublisher(brokersCSV, topic string) (*Publisher, error) {
	brokers := ParseBrokers(brokersCSV)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, data any) error {
	message := infra.NewMessage(routingKey, data)
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(routingKey),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte(message.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
