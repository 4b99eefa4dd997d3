package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transaction-processor/internal/model"
	"transaction-processor/internal/repo"
)

// ValidationReason classifies why a submission was rejected.
type ValidationReason string

const (
	MissingField ValidationReason = "missing_field"
	BadTimestamp ValidationReason = "bad_timestamp"
	BadAmount    ValidationReason = "bad_amount"
)

// ValidationError is a client input defect. It never reaches the queue or
// the worker and is never retried.
type ValidationError struct {
	Field  string
	Reason ValidationReason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Reason, e.Field)
}

// RawSubmission is the submission body before validation. Pointers and
// raw JSON distinguish an absent field from a present-but-invalid one,
// and let the amount check see the original JSON token.
type RawSubmission struct {
	TransactionID *string         `json:"transaction_id"`
	UserID        *string         `json:"user_id"`
	Amount        json.RawMessage `json:"amount"`
	Currency      *string         `json:"currency"`
	Timestamp     *string         `json:"timestamp"`
}

// Enqueuer is the producer side of the task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload model.TaskPayload) (string, error)
}

// Submitter validates records, persists the raw transaction and hands the
// conversion work to the queue.
type Submitter struct {
	store repo.StoreInterface
	queue Enqueuer
	log   *zap.SugaredLogger
}

// NewSubmitter returns the gateway service.
func NewSubmitter(store repo.StoreInterface, queue Enqueuer, logger *zap.SugaredLogger) *Submitter {
	return &Submitter{store: store, queue: queue, log: logger}
}

// timestamp layouts accepted as ISO-8601, with and without a zone
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Submit runs validate -> persist -> enqueue, in that order. The raw row
// is durable before any task exists, so no task can ever reference an
// unpersisted transaction; a store failure returns before enqueue.
func (s *Submitter) Submit(ctx context.Context, raw RawSubmission) (string, error) {
	tx, err := validate(raw)
	if err != nil {
		return "", err
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return "", err
	}

	taskID, err := s.queue.Enqueue(ctx, model.TaskPayload{
		TransactionID: tx.TransactionID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Timestamp:     tx.Timestamp,
	})
	if err != nil {
		return "", err
	}
	s.log.Infof("submitted transaction %s as task %s", tx.TransactionID, taskID)
	return taskID, nil
}

func validate(raw RawSubmission) (*model.Transaction, error) {
	if raw.TransactionID == nil {
		return nil, &ValidationError{Field: "transaction_id", Reason: MissingField}
	}
	if raw.UserID == nil {
		return nil, &ValidationError{Field: "user_id", Reason: MissingField}
	}
	if isAbsent(raw.Amount) {
		return nil, &ValidationError{Field: "amount", Reason: MissingField}
	}
	if raw.Currency == nil {
		return nil, &ValidationError{Field: "currency", Reason: MissingField}
	}
	if raw.Timestamp == nil {
		return nil, &ValidationError{Field: "timestamp", Reason: MissingField}
	}

	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Reason: BadAmount}
	}

	ts, err := parseTimestamp(*raw.Timestamp)
	if err != nil {
		return nil, &ValidationError{Field: "timestamp", Reason: BadTimestamp}
	}

	return &model.Transaction{
		TransactionID: *raw.TransactionID,
		UserID:        *raw.UserID,
		Amount:        amount,
		Currency:      *raw.Currency,
		Timestamp:     ts,
	}, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseAmount accepts only a positive JSON number. Booleans and quoted
// numbers are rejected here; some client runtimes alias booleans to
// integers and would otherwise sneak a "true" through as 1.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("non-positive amount %s", amount)
	}
	return amount, nil
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
