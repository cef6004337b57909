package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/config"
)

// resultRetention keeps task results queryable for a day after they
// finish, matching the progress-key TTL.
const resultRetention = 24 * time.Hour

type Client struct {
	client      *asynq.Client
	taskTimeout time.Duration
}

func NewClient(cfg config.RedisConfig, taskTimeout time.Duration) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		taskTimeout: taskTimeout,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueuePodcastGenerate submits one generation job and returns the task
// identity used for status polling. MaxRetry is zero on purpose: the
// orchestrator owns every retry decision, and replaying a half-finished
// job would repeat paid synthesis calls.
func (c *Client) EnqueuePodcastGenerate(payload PodcastGeneratePayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	info, err := c.client.Enqueue(
		asynq.NewTask(TypePodcastGenerate, data),
		asynq.MaxRetry(0),
		asynq.Timeout(c.taskTimeout),
		asynq.Retention(resultRetention),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TypePodcastGenerate, err)
	}
	return info.ID, nil
}
