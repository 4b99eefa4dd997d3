package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"transaction-processor/internal/logger"
	"transaction-processor/internal/model"
)

func newTestStatusStore(t *testing.T) (*StatusStore, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	log, _ := logger.NewLogger()
	return NewStatusStore(rdb, 0, log), mock
}

func mustJSON(t *testing.T, st model.TaskStatus) string {
	t.Helper()
	data, err := json.Marshal(st)
	assert.NoError(t, err)
	return string(data)
}

func TestStatusStore_UnknownIDIsPending(t *testing.T) {
	store, mock := newTestStatusStore(t)
	mock.ExpectGet("task:nope").RedisNil()

	st, err := store.Get(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Equal(t, model.TaskPending, st.State)
	assert.Equal(t, "Pending...", st.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusStore_SetAndGet(t *testing.T) {
	store, mock := newTestStatusStore(t)
	started := model.TaskStatus{State: model.TaskStarted, Status: "Processing..."}

	mock.ExpectGet("task:t1").RedisNil()
	mock.ExpectSet("task:t1", mustJSON(t, started), 0).SetVal("OK")
	assert.NoError(t, store.Set(context.Background(), "t1", started))

	mock.ExpectGet("task:t1").SetVal(mustJSON(t, started))
	st, err := store.Get(context.Background(), "t1")
	assert.NoError(t, err)
	assert.Equal(t, started, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusStore_TerminalStateIsFinal(t *testing.T) {
	store, mock := newTestStatusStore(t)
	success := model.TaskStatus{
		State:  model.TaskSuccess,
		Status: "Transaction processed",
		Result: &model.TaskResult{Status: "Transaction processed", TransactionID: "T1"},
	}

	// a redelivered attempt may try to mark STARTED again; the terminal
	// record must win
	mock.ExpectGet("task:t1").SetVal(mustJSON(t, success))
	err := store.Set(context.Background(), "t1", model.TaskStatus{
		State:  model.TaskStarted,
		Status: "Processing...",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "no SET may follow a terminal state")
}
