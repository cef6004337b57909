package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/audio"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/config"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/models"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/queue"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/speech"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/store"
)

type updateCall struct {
	id        int64
	script    string
	audioPath string
	status    string
}

type stubStore struct {
	calls []updateCall
	errs  []error // error for the nth call; nil past the end
}

func (s *stubStore) UpdateResult(ctx context.Context, id int64, script, audioPath, status string) error {
	n := len(s.calls)
	s.calls = append(s.calls, updateCall{id: id, script: script, audioPath: audioPath, status: status})
	if n < len(s.errs) {
		return s.errs[n]
	}
	return nil
}

type stubWriter struct {
	script string
}

func (s *stubWriter) Generate(ctx context.Context, articles []models.Article) string {
	return s.script
}

type ttsResponse struct {
	pcm []byte
	err error
}

type stubTTS struct {
	responses []ttsResponse
	calls     int
}

func (s *stubTTS) Synthesize(ctx context.Context, chunkText string) ([]byte, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		return nil, fmt.Errorf("unexpected synthesis call %d", i)
	}
	r := s.responses[i]
	return r.pcm, r.err
}

type progressCall struct {
	current int
	status  string
}

type stubReporter struct {
	progress []progressCall
	failures []queue.TaskFailure
}

func (s *stubReporter) Report(ctx context.Context, taskID string, current int, status string) {
	s.progress = append(s.progress, progressCall{current: current, status: status})
}

func (s *stubReporter) ReportFailure(ctx context.Context, taskID string, f queue.TaskFailure) {
	s.failures = append(s.failures, f)
}

// threeTurnScript is sized so the planner yields exactly three turn-based
// chunks at a 50-char target with MaxChunks 3.
func threeTurnScript() string {
	return strings.Join([]string{
		"Joe: " + strings.Repeat("a", 55),
		"Jane: " + strings.Repeat("b", 54),
		"Joe: " + strings.Repeat("c", 55),
	}, "\n")
}

func newTestWorker(t *testing.T, st *stubStore, tts *stubTTS, rep *stubReporter) (*PodcastWorker, *[]time.Duration) {
	t.Helper()

	cfg := config.PodcastConfig{
		OutputDir:       t.TempDir(),
		MaxChunks:       3,
		TargetChars:     50,
		InterChunkDelay: 2 * time.Second,
	}

	w := NewPodcastWorker(st, &stubWriter{script: threeTurnScript()}, tts, rep,
		[]string{"Joe:", "Jane:"}, cfg)

	sleeps := &[]time.Duration{}
	w.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	w.now = func() time.Time {
		return time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	}
	return w, sleeps
}

func newGenerateTask(t *testing.T, payload queue.PodcastGeneratePayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(queue.TypePodcastGenerate, data)
}

func testPayload() queue.PodcastGeneratePayload {
	return queue.PodcastGeneratePayload{
		PodcastID: 7,
		UserID:    3,
		Articles:  []models.Article{{ID: 1, Title: "A Story"}},
	}
}

func okPCM() []byte { return make([]byte, 480) } // 240 frames of 16-bit mono

func TestProcessTaskCompletesWithAudio(t *testing.T) {
	st := &stubStore{}
	tts := &stubTTS{responses: []ttsResponse{{pcm: okPCM()}, {pcm: okPCM()}, {pcm: okPCM()}}}
	rep := &stubReporter{}
	w, sleeps := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.NoError(t, err)

	require.Len(t, st.calls, 1)
	call := st.calls[0]
	assert.Equal(t, int64(7), call.id)
	assert.Equal(t, threeTurnScript(), call.script)
	assert.Equal(t, models.PodcastStatusCompleted, call.status)
	assert.True(t, strings.HasSuffix(call.audioPath, "podcast_7_3_20260828_103000.wav"), call.audioPath)

	frames, err := audio.NumFrames(call.audioPath)
	require.NoError(t, err)
	assert.Equal(t, 720, frames)

	// scratch chunk files are cleaned up, only the final wav remains
	entries, err := os.ReadDir(w.cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, []progressCall{
		{10, "Generating script..."},
		{40, "Script generated, creating audio..."},
		{90, "Updating database..."},
	}, rep.progress)
	assert.Empty(t, rep.failures)

	// one fixed pause between each pair of consecutive chunks
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *sleeps)
}

func TestProcessTaskQuotaKeepsEarlierChunks(t *testing.T) {
	st := &stubStore{}
	tts := &stubTTS{responses: []ttsResponse{
		{pcm: okPCM()},
		{err: &speech.QuotaError{Err: errors.New("quota exceeded")}},
	}}
	rep := &stubReporter{}
	w, _ := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.NoError(t, err)

	assert.Equal(t, 2, tts.calls, "no synthesis calls after quota exhaustion")

	require.Len(t, st.calls, 1)
	assert.Equal(t, models.PodcastStatusCompleted, st.calls[0].status)

	frames, err := audio.NumFrames(st.calls[0].audioPath)
	require.NoError(t, err)
	assert.Equal(t, 240, frames, "only the pre-quota chunk is kept")
}

func TestProcessTaskQuotaBeforeAnyAudioIsScriptOnly(t *testing.T) {
	st := &stubStore{}
	tts := &stubTTS{responses: []ttsResponse{
		{err: &speech.QuotaError{Err: errors.New("quota exceeded")}},
	}}
	rep := &stubReporter{}
	w, _ := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.NoError(t, err)

	assert.Equal(t, 1, tts.calls)
	require.Len(t, st.calls, 1)
	assert.Equal(t, models.PodcastStatusScriptOnly, st.calls[0].status)
	assert.Empty(t, st.calls[0].audioPath)
}

func TestProcessTaskSkipsFatalChunk(t *testing.T) {
	st := &stubStore{}
	tts := &stubTTS{responses: []ttsResponse{
		{pcm: okPCM()},
		{err: &speech.FatalError{Attempts: 3, Err: errors.New("boom")}},
		{pcm: okPCM()},
	}}
	rep := &stubReporter{}
	w, _ := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.NoError(t, err)

	assert.Equal(t, 3, tts.calls, "a fatal chunk must not stop the remaining chunks")

	require.Len(t, st.calls, 1)
	assert.Equal(t, models.PodcastStatusCompleted, st.calls[0].status)

	frames, err := audio.NumFrames(st.calls[0].audioPath)
	require.NoError(t, err)
	assert.Equal(t, 480, frames)
}

func TestProcessTaskAllChunksFatalIsScriptOnly(t *testing.T) {
	fatal := &speech.FatalError{Attempts: 3, Err: errors.New("boom")}
	st := &stubStore{}
	tts := &stubTTS{responses: []ttsResponse{{err: fatal}, {err: fatal}, {err: fatal}}}
	rep := &stubReporter{}
	w, _ := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.NoError(t, err)

	require.Len(t, st.calls, 1)
	assert.Equal(t, models.PodcastStatusScriptOnly, st.calls[0].status)
	assert.Empty(t, st.calls[0].audioPath)
	assert.Empty(t, rep.failures)
}

func TestProcessTaskRetriesPersistence(t *testing.T) {
	st := &stubStore{errs: []error{
		errors.New("connection refused"),
		errors.New("connection refused"),
		nil,
	}}
	tts := &stubTTS{responses: []ttsResponse{{pcm: okPCM()}, {pcm: okPCM()}, {pcm: okPCM()}}}
	rep := &stubReporter{}
	w, sleeps := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.NoError(t, err)

	assert.Len(t, st.calls, 3)
	assert.Empty(t, rep.failures)

	// two inter-chunk pauses followed by two persistence retry delays
	assert.Equal(t, []time.Duration{
		2 * time.Second, 2 * time.Second,
		3 * time.Second, 3 * time.Second,
	}, *sleeps)
}

func TestProcessTaskPersistenceExhaustedFails(t *testing.T) {
	dbErr := errors.New("connection refused")
	st := &stubStore{errs: []error{dbErr, dbErr, dbErr}}
	tts := &stubTTS{responses: []ttsResponse{{pcm: okPCM()}, {pcm: okPCM()}, {pcm: okPCM()}}}
	rep := &stubReporter{}
	w, _ := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "podcast 7", "error must carry the job identity")

	assert.Len(t, st.calls, 3)
	require.Len(t, rep.failures, 1)
	assert.Equal(t, int64(7), rep.failures[0].PodcastID)
	assert.Contains(t, rep.failures[0].Error, "connection refused")
}

func TestProcessTaskMissingRecordFailsImmediately(t *testing.T) {
	st := &stubStore{errs: []error{store.ErrNotFound}}
	tts := &stubTTS{responses: []ttsResponse{{pcm: okPCM()}, {pcm: okPCM()}, {pcm: okPCM()}}}
	rep := &stubReporter{}
	w, _ := newTestWorker(t, st, tts, rep)

	err := w.ProcessTask(context.Background(), newGenerateTask(t, testPayload()))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Len(t, st.calls, 1, "a missing record is not worth retrying")
	require.Len(t, rep.failures, 1)
}

func TestProcessTaskShortScriptSingleChunk(t *testing.T) {
	st := &stubStore{}
	// 10 frames of 16-bit mono per synthesis call
	tts := &stubTTS{responses: []ttsResponse{{pcm: make([]byte, 20)}}}
	rep := &stubReporter{}

	cfg := config.PodcastConfig{
		OutputDir:       t.TempDir(),
		MaxChunks:       15,
		TargetChars:     400,
		InterChunkDelay: 2 * time.Second,
	}
	script := "Joe: Quick update today.\nJane: Very quick indeed."
	w := NewPodcastWorker(st, &stubWriter{script: script}, tts, rep,
		[]string{"Joe:", "Jane:"}, cfg)
	w.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	w.now = func() time.Time { return time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC) }

	payload := queue.PodcastGeneratePayload{
		PodcastID: 7,
		UserID:    3,
		Articles: []models.Article{
			{ID: 1, Title: "One"}, {ID: 2, Title: "Two"}, {ID: 3, Title: "Three"},
		},
	}
	err := w.ProcessTask(context.Background(), newGenerateTask(t, payload))
	require.NoError(t, err)

	assert.Equal(t, 1, tts.calls, "a below-target script is one chunk, one call")

	require.Len(t, st.calls, 1)
	assert.Equal(t, models.PodcastStatusCompleted, st.calls[0].status)

	frames, err := audio.NumFrames(st.calls[0].audioPath)
	require.NoError(t, err)
	assert.Equal(t, 10, frames)
}

func TestProcessTaskRejectsMalformedPayload(t *testing.T) {
	st := &stubStore{}
	rep := &stubReporter{}
	w, _ := newTestWorker(t, st, &stubTTS{}, rep)

	task := asynq.NewTask(queue.TypePodcastGenerate, []byte("not json"))
	err := w.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.Empty(t, st.calls)
}
