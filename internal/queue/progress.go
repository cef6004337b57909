package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Progress is the ephemeral in-flight state of a running task. It lives
// on a redis side channel keyed by task identity, never on the Job
// record, and is lost if the worker dies — by design.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}

const (
	progressKeyPrefix = "podcast:task:progress:"
	failureKeyPrefix  = "podcast:task:failure:"
	progressTTL       = 24 * time.Hour
)

// Reporter publishes task progress and terminal failure metadata. All
// writes are best-effort: a redis hiccup must never fail the job itself.
type Reporter struct {
	rdb *redis.Client
}

func NewReporter(rdb *redis.Client) *Reporter {
	return &Reporter{rdb: rdb}
}

func (r *Reporter) Report(ctx context.Context, taskID string, current int, status string) {
	p := Progress{Current: current, Total: 100, Status: status}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, progressKeyPrefix+taskID, data, progressTTL).Err(); err != nil {
		slog.Warn("progress report failed", "task_id", taskID, "error", err)
	}
}

func (r *Reporter) ReportFailure(ctx context.Context, taskID string, f TaskFailure) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, failureKeyPrefix+taskID, data, progressTTL).Err(); err != nil {
		slog.Warn("failure report failed", "task_id", taskID, "error", err)
	}
}

func (r *Reporter) progress(ctx context.Context, taskID string) (*Progress, error) {
	val, err := r.rdb.Get(ctx, progressKeyPrefix+taskID).Result()
	if err != nil {
		return nil, err
	}
	var p Progress
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

func (r *Reporter) failure(ctx context.Context, taskID string) (*TaskFailure, error) {
	val, err := r.rdb.Get(ctx, failureKeyPrefix+taskID).Result()
	if err != nil {
		return nil, err
	}
	var f TaskFailure
	if err := json.Unmarshal([]byte(val), &f); err != nil {
		return nil, fmt.Errorf("decode failure: %w", err)
	}
	return &f, nil
}
