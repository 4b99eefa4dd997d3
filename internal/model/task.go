package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskState is the lifecycle of a queued task. Transitions are monotonic:
// PENDING -> STARTED -> SUCCESS | FAILURE, with no way out of a terminal
// state.
type TaskState string

const (
	TaskPending TaskState = "PENDING"
	TaskStarted TaskState = "STARTED"
	TaskSuccess TaskState = "SUCCESS"
	TaskFailure TaskState = "FAILURE"
)

// Terminal reports whether the state admits no further transition.
func (s TaskState) Terminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// TaskPayload carries the transaction fields through the queue.
type TaskPayload struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TaskResult is recorded on SUCCESS.
type TaskResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// TaskStatus is the record kept in the result backend and returned by the
// status endpoint.
type TaskStatus struct {
	State  TaskState   `json:"state"`
	Status string      `json:"status"`
	Result *TaskResult `json:"result,omitempty"`
}
