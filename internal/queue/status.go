package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"transaction-processor/internal/model"
)

const statusKeyPrefix = "task:"

// StatusWriter is the recording side of the result backend.
type StatusWriter interface {
	Set(ctx context.Context, taskID string, st model.TaskStatus) error
}

// StatusStore keeps task lifecycle records in Redis, keyed by task id.
// It is the result backend the status endpoint reads from.
type StatusStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.SugaredLogger
}

// NewStatusStore constructs the backend.
func NewStatusStore(rdb *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *StatusStore {
	return &StatusStore{rdb: rdb, ttl: ttl, log: logger}
}

// Set records a task's status. Transitions are monotonic: once a task is
// terminal its record is never overwritten, so a redelivered task cannot
// regress a SUCCESS to STARTED.
func (s *StatusStore) Set(ctx context.Context, taskID string, st model.TaskStatus) error {
	cur, err := s.Get(ctx, taskID)
	if err == nil && cur.State.Terminal() {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := s.rdb.Set(ctx, statusKeyPrefix+taskID, string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("set status %s: %w", taskID, err)
	}
	return nil
}

// Get returns the task's current status. An unknown id reports PENDING:
// under at-least-once delivery a freshly issued task id may not be
// visible yet, and callers must not treat that as a terminal failure.
func (s *StatusStore) Get(ctx context.Context, taskID string) (model.TaskStatus, error) {
	val, err := s.rdb.Get(ctx, statusKeyPrefix+taskID).Result()
	if errors.Is(err, redis.Nil) {
		return model.TaskStatus{State: model.TaskPending, Status: "Pending..."}, nil
	}
	if err != nil {
		return model.TaskStatus{}, fmt.Errorf("get status %s: %w", taskID, err)
	}
	var st model.TaskStatus
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return model.TaskStatus{}, fmt.Errorf("decode status %s: %w", taskID, err)
	}
	return st, nil
}
