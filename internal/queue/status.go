package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/config"
)

// ErrTaskNotFound is returned when a task identity is unknown (never
// enqueued, or expired past the retention window).
var ErrTaskNotFound = errors.New("task not found")

// TaskStatus is the polled status object exposed to the API layer.
type TaskStatus struct {
	State    string          `json:"state"` // pending | in_progress | succeeded | failed
	Progress *Progress       `json:"progress,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// StatusService resolves a task identity into its current state by
// combining the task runtime's own bookkeeping with the progress side
// channel.
type StatusService struct {
	inspector *asynq.Inspector
	reporter  *Reporter
}

func NewStatusService(cfg config.RedisConfig, rdb *redis.Client) *StatusService {
	return &StatusService{
		inspector: asynq.NewInspector(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		reporter: NewReporter(rdb),
	}
}

func (s *StatusService) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	info, err := s.inspector.GetTaskInfo("default", taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("inspect task %s: %w", taskID, err)
	}

	switch info.State {
	case asynq.TaskStateActive, asynq.TaskStateRetry:
		st := &TaskStatus{State: "in_progress"}
		if p, err := s.reporter.progress(ctx, taskID); err == nil {
			st.Progress = p
		}
		return st, nil

	case asynq.TaskStateCompleted:
		return &TaskStatus{State: "succeeded", Result: info.Result}, nil

	case asynq.TaskStateArchived:
		st := &TaskStatus{State: "failed", Error: info.LastErr}
		if f, err := s.reporter.failure(ctx, taskID); err == nil && f.Error != "" {
			st.Error = f.Error
		}
		return st, nil

	default:
		// pending, scheduled, aggregating
		return &TaskStatus{State: "pending"}, nil
	}
}

func (s *StatusService) Close() error {
	return s.inspector.Close()
}
