// Package events publishes domain events to Kafka. Publishing is strictly
// post-commit and best-effort: a broker failure is logged and never
// surfaced to the request that produced the event.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

type WithdrawalEvent struct {
	ReferenceID string    `json:"reference_id"`
	AccountID   int64     `json:"account_id"`
	Amount      int64     `json:"amount"`
	Balance     int64     `json:"balance"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type CardLockedEvent struct {
	CardID         int64     `json:"card_id"`
	FailedAttempts int       `json:"failed_attempts"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher writes domain events to a single topic, keyed so that events
// for one account land on one partition. A nil Publisher is valid and
// drops everything, which is how the server runs without brokers.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) PublishWithdrawal(event WithdrawalEvent) {
	p.publish(event.ReferenceID, "withdrawal", event)
}

func (p *Publisher) PublishCardLocked(event CardLockedEvent) {
	p.publish("", "card_locked", event)
}

func (p *Publisher) publish(key, eventType string, event any) {
	if p == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EVENTS] Failed to marshal %s event: %v", eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("[EVENTS] Failed to publish %s event: %v", eventType, err)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
