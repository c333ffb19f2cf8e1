// internal/infrastructure/messaging/kafka.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/events"
)

// KafkaPublisher appends inventory events to a Kafka topic for downstream
// consumers. Writes are asynchronous; delivery failures are logged.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string, log *logrus.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"topic":    topic,
					"messages": len(messages),
				}).Warn("failed to deliver inventory events to kafka")
			}
		},
	}
	return newKafkaPublisher(w)
}

func newKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish implements events.Publisher
func (p *KafkaPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evts))
	for _, evt := range evts {
		msg, err := toMessage(evt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write inventory events to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// toMessage keys stock events by shoe so each shoe's updates stay ordered
// within a partition
func toMessage(evt events.Event) (kafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s event: %w", evt.Type, err)
	}

	key := "shoe-" + strconv.FormatUint(uint64(evt.ShoeID), 10)
	if evt.ShoeID == 0 {
		key = "sale-" + strconv.FormatUint(uint64(evt.SaleID), 10)
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}, nil
}
