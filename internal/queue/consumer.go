package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Delivery is one leased task: the decoded envelope plus the broker
// message needed to acknowledge it.
type Delivery struct {
	Envelope Envelope
	msg      kafka.Message
}

// Consumer wraps a kafka.Reader with manual offset commits. An in-flight
// message stays uncommitted until the worker finishes it, so a crashed
// worker's task becomes redeliverable once its group session times out.
// The group protocol keeps a partition owned by a single consumer, so the
// same in-flight task is never handed to two workers at once.
type Consumer struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

// NewConsumer builds the group reader.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, log: logger}
}

// Fetch blocks for the next task. A message with an undecodable body is
// committed and skipped; it can never succeed and would otherwise wedge
// the partition.
func (c *Consumer) Fetch(ctx context.Context) (Delivery, error) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return Delivery{}, fmt.Errorf("fetch: %w", err)
		}
		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.log.Errorf("drop undecodable message at offset %d: %v", msg.Offset, err)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return Delivery{}, fmt.Errorf("commit poison message: %w", err)
			}
			continue
		}
		return Delivery{Envelope: env, msg: msg}, nil
	}
}

// Commit acknowledges a finished task, releasing its lease for good.
func (c *Consumer) Commit(ctx context.Context, d Delivery) error {
	return c.reader.CommitMessages(ctx, d.msg)
}

// Close shuts the reader down, leaving uncommitted messages to the next
// group member.
func (c *Consumer) Close() error { return c.reader.Close() }
