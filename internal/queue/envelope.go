package queue

import "transaction-processor/internal/model"

// KindConvertTransaction is the task kind handled by the currency
// conversion processor. The worker dispatches on this string through its
// registry, so new task kinds only need a new constant and handler.
const KindConvertTransaction = "transaction.convert"

// Envelope is the wire format carried on the task topic.
type Envelope struct {
	TaskID  string            `json:"task_id"`
	Kind    string            `json:"kind"`
	Attempt int               `json:"attempt"`
	Payload model.TaskPayload `json:"payload"`
}
