package models

import "time"

// Podcast is the durable job record. Only the orchestrator writes Script,
// AudioFilePath and Status after creation; the API layer reads them.
type Podcast struct {
	ID            int64     `json:"id" db:"id"`
	OwnerID       int64     `json:"owner_id" db:"user_id"`
	Title         string    `json:"title" db:"title"`
	Script        string    `json:"script,omitempty" db:"script"`
	AudioFilePath string    `json:"audio_file_path,omitempty" db:"audio_file_path"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// The closed status set of a podcast record. InProgress is part of the
// declared vocabulary but is never written to the record: in-flight
// state is reported on the task side channel only, and the worker makes
// a single terminal write.
const (
	PodcastStatusPending    = "pending"
	PodcastStatusInProgress = "in_progress"
	PodcastStatusCompleted  = "completed"
	PodcastStatusScriptOnly = "script_only"
	PodcastStatusFailed     = "failed"
)

// Article is the input material for one podcast. Articles travel inside
// the task payload; the RSS layer that produces them is external.
type Article struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Author     string `json:"author"`
	ArticleURL string `json:"article_url"`
}
