// Package workers holds the background task handlers. PodcastWorker is
// the job orchestrator: script synthesis, chunked audio synthesis,
// reassembly and the single terminal write to the job record.
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/audio"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/config"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/models"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/queue"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/speech"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/store"
	"github.com/Kingjinsight/Lets-break-the-information-gap/pkg/chunkplan"
)

const (
	maxPersistAttempts = 3
	persistRetryDelay  = 3 * time.Second
)

// ScriptWriter produces a dialogue script. It never fails (fallback
// scripts are generated internally).
type ScriptWriter interface {
	Generate(ctx context.Context, articles []models.Article) string
}

// Synthesizer converts one chunk of dialogue into a raw PCM buffer.
type Synthesizer interface {
	Synthesize(ctx context.Context, chunkText string) ([]byte, error)
}

// PodcastStore is the orchestrator's narrow view of the job record: one
// terminal write, performed over the worker-scoped pool.
type PodcastStore interface {
	UpdateResult(ctx context.Context, id int64, script, audioPath, status string) error
}

// ProgressReporter publishes in-flight state on the task side channel.
type ProgressReporter interface {
	Report(ctx context.Context, taskID string, current int, status string)
	ReportFailure(ctx context.Context, taskID string, f queue.TaskFailure)
}

type PodcastWorker struct {
	store    PodcastStore
	writer   ScriptWriter
	tts      Synthesizer
	reporter ProgressReporter
	planner  *chunkplan.Planner
	cfg      config.PodcastConfig
	format   audio.Format

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewPodcastWorker(st PodcastStore, writer ScriptWriter, tts Synthesizer, reporter ProgressReporter, speakerTags []string, cfg config.PodcastConfig) *PodcastWorker {
	return &PodcastWorker{
		store:    st,
		writer:   writer,
		tts:      tts,
		reporter: reporter,
		planner: chunkplan.New(chunkplan.Options{
			TargetChars: cfg.TargetChars,
			SpeakerTags: speakerTags,
		}),
		cfg:    cfg,
		format: audio.DefaultFormat(),
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

// ProcessTask runs one generation job. Terminal failures are reported on
// the side channel and then handed back to the task runtime so its own
// failure bookkeeping activates.
func (w *PodcastWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.PodcastGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	taskID, _ := asynq.GetTaskID(ctx)

	result, err := w.run(ctx, taskID, payload)
	if err != nil {
		w.reporter.ReportFailure(ctx, taskID, queue.TaskFailure{
			Error:     err.Error(),
			PodcastID: payload.PodcastID,
			Timestamp: w.now(),
		})
		return err
	}

	if rw := t.ResultWriter(); rw != nil {
		if data, merr := json.Marshal(result); merr == nil {
			if _, werr := rw.Write(data); werr != nil {
				slog.Warn("could not write task result", "task_id", taskID, "error", werr)
			}
		}
	}
	return nil
}

func (w *PodcastWorker) run(ctx context.Context, taskID string, payload queue.PodcastGeneratePayload) (*queue.PodcastResult, error) {
	slog.Info("starting podcast generation",
		"podcast_id", payload.PodcastID, "articles", len(payload.Articles))

	w.reporter.Report(ctx, taskID, 10, "Generating script...")
	script := w.writer.Generate(ctx, payload.Articles)
	slog.Info("script generated", "podcast_id", payload.PodcastID, "length", len(script))

	w.reporter.Report(ctx, taskID, 40, "Script generated, creating audio...")
	audioPath, err := w.synthesizeAudio(ctx, payload, script)
	if err != nil {
		return nil, err
	}

	w.reporter.Report(ctx, taskID, 90, "Updating database...")
	status := models.PodcastStatusCompleted
	if audioPath == "" {
		status = models.PodcastStatusScriptOnly
	}
	if err := w.persist(ctx, payload.PodcastID, script, audioPath, status); err != nil {
		return nil, err
	}

	result := &queue.PodcastResult{
		PodcastID:    payload.PodcastID,
		AudioPath:    audioPath,
		ScriptLength: len(script),
		Status:       status,
		HasAudio:     audioPath != "",
	}
	slog.Info("podcast generation completed",
		"podcast_id", payload.PodcastID, "status", status, "audio_path", audioPath)
	return result, nil
}

// synthesizeAudio runs the chunked synthesis stage. Audio trouble never
// fails the job: quota exhaustion keeps whatever chunks already
// succeeded, a chunk whose retries are exhausted is skipped, and an
// empty result simply means a script-only podcast. Only context
// cancellation propagates.
func (w *PodcastWorker) synthesizeAudio(ctx context.Context, payload queue.PodcastGeneratePayload, script string) (string, error) {
	plan, err := w.planner.Plan(script, w.cfg.MaxChunks)
	if err != nil {
		slog.Error("chunk planning failed", "podcast_id", payload.PodcastID, "error", err)
		return "", nil
	}

	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		slog.Error("could not create output dir", "dir", w.cfg.OutputDir, "error", err)
		return "", nil
	}

	finalName := fmt.Sprintf("podcast_%d_%d_%s.wav",
		payload.PodcastID, payload.UserID, w.now().Format("20060102_150405"))

	var chunkFiles []string
	var failedChunks []int

	for i, chunk := range plan.Chunks {
		if i > 0 {
			// fixed pause between synthesis calls, external rate limits
			if err := w.sleep(ctx, w.cfg.InterChunkDelay); err != nil {
				w.removeFiles(chunkFiles)
				return "", err
			}
		}

		pcm, err := w.tts.Synthesize(ctx, chunk.Text)
		if err != nil {
			var quotaErr *speech.QuotaError
			if errors.As(err, &quotaErr) {
				slog.Warn("synthesis quota exhausted, aborting remaining chunks",
					"podcast_id", payload.PodcastID, "chunk", i, "remaining", len(plan.Chunks)-i-1)
				break
			}
			if ctx.Err() != nil {
				w.removeFiles(chunkFiles)
				return "", ctx.Err()
			}
			failedChunks = append(failedChunks, i)
			slog.Warn("chunk synthesis failed, continuing",
				"podcast_id", payload.PodcastID, "chunk", i, "error", err)
			continue
		}

		chunkPath := filepath.Join(w.cfg.OutputDir,
			fmt.Sprintf("chunk_%d_%s_%s", i, uuid.NewString()[:8], finalName))
		if err := audio.WriteWAV(chunkPath, pcm, w.format); err != nil {
			failedChunks = append(failedChunks, i)
			slog.Warn("chunk encoding failed, continuing",
				"podcast_id", payload.PodcastID, "chunk", i, "error", err)
			continue
		}
		chunkFiles = append(chunkFiles, chunkPath)
	}

	if len(failedChunks) > 0 {
		slog.Warn("some chunks produced no audio",
			"podcast_id", payload.PodcastID, "failed_chunks", failedChunks)
	}
	if len(chunkFiles) == 0 {
		return "", nil
	}

	finalPath := filepath.Join(w.cfg.OutputDir, finalName)
	if err := audio.Combine(chunkFiles, finalPath); err != nil {
		slog.Error("audio combine failed", "podcast_id", payload.PodcastID, "error", err)
		w.removeFiles(chunkFiles)
		return "", nil
	}
	w.removeFiles(chunkFiles)

	return finalPath, nil
}

// persist writes the terminal job state, retrying transient storage
// errors a bounded number of times. A missing record is not retried.
func (w *PodcastWorker) persist(ctx context.Context, podcastID int64, script, audioPath, status string) error {
	var lastErr error
	for attempt := 1; attempt <= maxPersistAttempts; attempt++ {
		err := w.store.UpdateResult(ctx, podcastID, script, audioPath, status)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("persist podcast %d: %w", podcastID, err)
		}
		lastErr = err
		slog.Warn("podcast update failed",
			"podcast_id", podcastID, "attempt", attempt, "max_attempts", maxPersistAttempts, "error", err)
		if attempt < maxPersistAttempts {
			if serr := w.sleep(ctx, persistRetryDelay); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("persist podcast %d after %d attempts: %w", podcastID, maxPersistAttempts, lastErr)
}

// removeFiles deletes scratch chunk files. Best-effort: a leftover temp
// file must never fail an otherwise-successful job.
func (w *PodcastWorker) removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not remove chunk file", "path", p, "error", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
