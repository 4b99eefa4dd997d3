package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"transaction-processor/internal/model"
)

// ErrUnavailable is returned when the broker rejects or times out an
// enqueue. The submitter surfaces it as a service failure.
var ErrUnavailable = errors.New("queue unavailable")

// Writer is the subset of kafka.Writer the queue needs (mockable).
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Queue produces task envelopes onto the broker and records their initial
// status in the result backend.
type Queue struct {
	writer    Writer
	dlqWriter Writer
	status    StatusWriter
	timeout   time.Duration
	log       *zap.SugaredLogger
}

// NewQueue constructs the producer side.
func NewQueue(w, dlq Writer, status StatusWriter, timeout time.Duration, logger *zap.SugaredLogger) *Queue {
	return &Queue{writer: w, dlqWriter: dlq, status: status, timeout: timeout, log: logger}
}

// Enqueue assigns a task id, publishes the envelope and records PENDING.
// The write is bounded by the configured timeout so a dead broker cannot
// hang the request path.
func (q *Queue) Enqueue(ctx context.Context, payload model.TaskPayload) (string, error) {
	env := Envelope{
		TaskID:  uuid.NewString(),
		Kind:    KindConvertTransaction,
		Attempt: 1,
		Payload: payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	wctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	msg := kafka.Message{
		// keyed by transaction id so duplicates land on one partition
		Key:   []byte(payload.TransactionID),
		Value: data,
		Time:  time.Now(),
	}
	if err := q.writer.WriteMessages(wctx, msg); err != nil {
		q.log.Errorf("enqueue %s: %v", payload.TransactionID, err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := q.status.Set(ctx, env.TaskID, model.TaskStatus{
		State:  model.TaskPending,
		Status: "Pending...",
	}); err != nil {
		// delivery already happened; an unreadable status degrades to the
		// reporter's PENDING default, so log and move on
		q.log.Warnf("record pending %s: %v", env.TaskID, err)
	}
	return env.TaskID, nil
}

// DeadLetter parks an exhausted envelope on the dead-letter topic.
func (q *Queue) DeadLetter(ctx context.Context, env Envelope, reason string) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	msg := kafka.Message{
		Key:   []byte(env.Payload.TransactionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(reason)},
		},
		Time: time.Now(),
	}
	if err := q.dlqWriter.WriteMessages(ctx, msg); err != nil {
		q.log.Errorf("dead-letter %s: %v", env.TaskID, err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
