package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"transaction-processor/internal/metrics"
	"transaction-processor/internal/model"
	"transaction-processor/internal/queue"
	"transaction-processor/internal/rates"
	"transaction-processor/internal/repo"
)

// HandlerFunc processes one task payload to completion.
type HandlerFunc func(ctx context.Context, payload model.TaskPayload) (*model.TaskResult, error)

// Source is the consuming side of the task queue.
type Source interface {
	Fetch(ctx context.Context) (queue.Delivery, error)
	Commit(ctx context.Context, d queue.Delivery) error
}

// DeadLetterer parks envelopes that exhausted their retries.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, env queue.Envelope, reason string) error
}

// StatusWriter records task lifecycle transitions. Only the worker may
// move a task out of PENDING.
type StatusWriter interface {
	Set(ctx context.Context, taskID string, st model.TaskStatus) error
}

// Worker consumes the task topic and dispatches envelopes through an
// explicit kind registry. Several workers may run concurrently against
// the same group; they share no in-process state.
type Worker struct {
	source      Source
	dlq         DeadLetterer
	status      StatusWriter
	registry    map[string]HandlerFunc
	maxAttempts int
	backoff     time.Duration
	log         *zap.SugaredLogger
}

// New constructs a worker with an empty registry.
func New(source Source, dlq DeadLetterer, status StatusWriter, maxAttempts int, backoff time.Duration, logger *zap.SugaredLogger) *Worker {
	return &Worker{
		source:      source,
		dlq:         dlq,
		status:      status,
		registry:    make(map[string]HandlerFunc),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		log:         logger,
	}
}

// Register binds a task kind to its handler. Kinds are looked up at
// dequeue time; an envelope with an unregistered kind fails terminally.
func (w *Worker) Register(kind string, h HandlerFunc) {
	w.registry[kind] = h
}

// Run consumes until the context is cancelled. A single task's failure is
// recorded on that task and never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		d, err := w.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Errorf("fetch task: %v", err)
			time.Sleep(w.backoff)
			continue
		}

		if !w.handle(ctx, d.Envelope) {
			// shut down mid-task: leave the offset unacknowledged so
			// the task is redelivered to a fresh STARTED attempt
			continue
		}

		// commit only after the terminal status is recorded
		if err := w.source.Commit(ctx, d); err != nil {
			w.log.Errorf("commit task %s: %v", d.Envelope.TaskID, err)
		}
	}
}

// handle runs one envelope to a terminal state. It returns false only
// when cancellation interrupted the task before it finished.
func (w *Worker) handle(ctx context.Context, env queue.Envelope) bool {
	start := time.Now()
	defer func() {
		metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	h, ok := w.registry[env.Kind]
	if !ok {
		w.log.Errorf("task %s: unknown kind %q", env.TaskID, env.Kind)
		w.fail(ctx, env, "unknown task kind: "+env.Kind)
		return true
	}

	w.setStatus(ctx, env.TaskID, model.TaskStatus{
		State:  model.TaskStarted,
		Status: "Processing...",
	})

	var (
		res *model.TaskResult
		err error
	)
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		res, err = h(ctx, env.Payload)
		if err == nil {
			break
		}
		if !retryable(err) || attempt == w.maxAttempts {
			break
		}
		w.log.Warnf("task %s attempt %d/%d: %v", env.TaskID, attempt, w.maxAttempts, err)
		select {
		case <-time.After(w.backoff):
		case <-ctx.Done():
			return false
		}
	}
	if err != nil {
		w.log.Errorf("task %s failed: %v", env.TaskID, err)
		w.fail(ctx, env, err.Error())
		return true
	}

	w.setStatus(ctx, env.TaskID, model.TaskStatus{
		State:  model.TaskSuccess,
		Status: res.Status,
		Result: res,
	})
	metrics.ProcessedTasks.Inc()
	w.log.Infof("task %s succeeded (transaction %s)", env.TaskID, res.TransactionID)
	return true
}

func (w *Worker) fail(ctx context.Context, env queue.Envelope, reason string) {
	w.setStatus(ctx, env.TaskID, model.TaskStatus{
		State:  model.TaskFailure,
		Status: reason,
	})
	metrics.FailedTasks.Inc()
	if err := w.dlq.DeadLetter(ctx, env, reason); err != nil {
		w.log.Errorf("dead-letter task %s: %v", env.TaskID, err)
		return
	}
	metrics.DeadLetteredTasks.Inc()
}

// retryable reports whether the error is a transient infrastructure
// failure worth another in-place attempt.
func retryable(err error) bool {
	return errors.Is(err, rates.ErrUnavailable) || errors.Is(err, repo.ErrUnavailable)
}

func (w *Worker) setStatus(ctx context.Context, taskID string, st model.TaskStatus) {
	if err := w.status.Set(ctx, taskID, st); err != nil {
		w.log.Errorf("set status %s=%s: %v", taskID, st.State, err)
	}
}
