package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"transaction-processor/internal/logger"
	"transaction-processor/internal/model"
	"transaction-processor/internal/queue"
	"transaction-processor/internal/repo"
)

type fakeStore struct {
	created []*model.Transaction
	failOn  error
}

func (f *fakeStore) CreateTransaction(_ context.Context, t *model.Transaction) error {
	if f.failOn != nil {
		return f.failOn
	}
	f.created = append(f.created, t)
	return nil
}

func (f *fakeStore) UpsertProcessed(context.Context, *model.ProcessedTransaction) error { return nil }

func (f *fakeStore) GetTransaction(context.Context, string) (*model.Transaction, error) {
	return nil, repo.ErrNotFound
}

func (f *fakeStore) GetProcessed(context.Context, string) (*model.ProcessedTransaction, error) {
	return nil, repo.ErrNotFound
}

type fakeQueue struct {
	enqueued []model.TaskPayload
	failOn   error
}

func (f *fakeQueue) Enqueue(_ context.Context, p model.TaskPayload) (string, error) {
	if f.failOn != nil {
		return "", f.failOn
	}
	f.enqueued = append(f.enqueued, p)
	return "task-1", nil
}

func rawFromJSON(t *testing.T, body string) RawSubmission {
	t.Helper()
	var raw RawSubmission
	assert.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func newSubmitter(t *testing.T) (*Submitter, *fakeStore, *fakeQueue) {
	t.Helper()
	store := &fakeStore{}
	q := &fakeQueue{}
	log, _ := logger.NewLogger()
	return NewSubmitter(store, q, log), store, q
}

func TestSubmit_Valid(t *testing.T) {
	s, store, q := newSubmitter(t)

	taskID, err := s.Submit(context.Background(), rawFromJSON(t, `{
		"transaction_id": "T1",
		"user_id": "U1",
		"amount": 100.0,
		"currency": "USD",
		"timestamp": "2024-08-31T12:34:56"
	}`))
	assert.NoError(t, err)
	assert.Equal(t, "task-1", taskID)

	assert.Len(t, store.created, 1)
	tx := store.created[0]
	assert.Equal(t, "T1", tx.TransactionID)
	assert.Equal(t, "U1", tx.UserID)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, 2024, tx.Timestamp.Year())

	assert.Len(t, q.enqueued, 1)
	assert.Equal(t, "T1", q.enqueued[0].TransactionID)
}

func TestSubmit_ZonedTimestamp(t *testing.T) {
	s, _, _ := newSubmitter(t)

	_, err := s.Submit(context.Background(), rawFromJSON(t, `{
		"transaction_id": "T2",
		"user_id": "U1",
		"amount": 5,
		"currency": "USD",
		"timestamp": "2024-08-31T12:34:56Z"
	}`))
	assert.NoError(t, err)
}

func TestSubmit_MissingFields(t *testing.T) {
	cases := []struct {
		field string
		body  string
	}{
		{"transaction_id", `{"user_id":"U1","amount":1,"currency":"USD","timestamp":"2024-08-31T12:34:56"}`},
		{"user_id", `{"transaction_id":"T1","amount":1,"currency":"USD","timestamp":"2024-08-31T12:34:56"}`},
		{"amount", `{"transaction_id":"T1","user_id":"U1","currency":"USD","timestamp":"2024-08-31T12:34:56"}`},
		{"currency", `{"transaction_id":"T1","user_id":"U1","amount":1,"timestamp":"2024-08-31T12:34:56"}`},
		{"timestamp", `{"transaction_id":"T1","user_id":"U1","amount":1,"currency":"USD"}`},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			s, store, q := newSubmitter(t)

			_, err := s.Submit(context.Background(), rawFromJSON(t, tc.body))
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Equal(t, MissingField, verr.Reason)
			assert.Equal(t, tc.field, verr.Field)
			assert.Empty(t, store.created)
			assert.Empty(t, q.enqueued)
		})
	}
}

func TestSubmit_BadAmount(t *testing.T) {
	cases := []struct {
		name   string
		amount string
	}{
		{"boolean", `true`},
		{"quoted number", `"150"`},
		{"zero", `0`},
		{"negative", `-50.0`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, store, _ := newSubmitter(t)

			body := `{"transaction_id":"T1","user_id":"U1","amount":` + tc.amount +
				`,"currency":"USD","timestamp":"2024-08-31T12:34:56"}`
			_, err := s.Submit(context.Background(), rawFromJSON(t, body))
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Equal(t, BadAmount, verr.Reason)
			assert.Empty(t, store.created)
		})
	}
}

func TestSubmit_BadTimestamp(t *testing.T) {
	s, store, q := newSubmitter(t)

	_, err := s.Submit(context.Background(), rawFromJSON(t, `{
		"transaction_id": "T1",
		"user_id": "U1",
		"amount": 100.0,
		"currency": "USD",
		"timestamp": "31/08/2024 12:34"
	}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, BadTimestamp, verr.Reason)
	assert.Empty(t, store.created)
	assert.Empty(t, q.enqueued)
}

func TestSubmit_StoreFailureDoesNotEnqueue(t *testing.T) {
	store := &fakeStore{failOn: repo.ErrUnavailable}
	q := &fakeQueue{}
	log, _ := logger.NewLogger()
	s := NewSubmitter(store, q, log)

	_, err := s.Submit(context.Background(), rawFromJSON(t, `{
		"transaction_id": "T1",
		"user_id": "U1",
		"amount": 100.0,
		"currency": "USD",
		"timestamp": "2024-08-31T12:34:56"
	}`))
	assert.ErrorIs(t, err, repo.ErrUnavailable)
	assert.Empty(t, q.enqueued, "no task may reference an unpersisted transaction")
}

func TestSubmit_QueueFailure(t *testing.T) {
	store := &fakeStore{}
	q := &fakeQueue{failOn: queue.ErrUnavailable}
	log, _ := logger.NewLogger()
	s := NewSubmitter(store, q, log)

	_, err := s.Submit(context.Background(), rawFromJSON(t, `{
		"transaction_id": "T1",
		"user_id": "U1",
		"amount": 100.0,
		"currency": "USD",
		"timestamp": "2024-08-31T12:34:56"
	}`))
	assert.True(t, errors.Is(err, queue.ErrUnavailable))
}
