package queue

import (
	"time"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/models"
)

const TypePodcastGenerate = "podcast:generate"

// PodcastGeneratePayload carries everything the orchestrator needs; the
// worker only touches the database again for the final write.
type PodcastGeneratePayload struct {
	PodcastID int64            `json:"podcast_id"`
	UserID    int64            `json:"user_id"`
	Articles  []models.Article `json:"articles"`
}

// PodcastResult is written to the task result channel when a job reaches
// a successful terminal state (completed or script_only).
type PodcastResult struct {
	PodcastID    int64  `json:"podcast_id"`
	AudioPath    string `json:"audio_path"`
	ScriptLength int    `json:"script_length"`
	Status       string `json:"status"`
	HasAudio     bool   `json:"has_audio"`
}

// TaskFailure is recorded on the progress side channel before a terminal
// error is handed back to the task runtime.
type TaskFailure struct {
	Error     string    `json:"error"`
	PodcastID int64     `json:"podcast_id"`
	Timestamp time.Time `json:"timestamp"`
}
