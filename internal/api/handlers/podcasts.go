package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/models"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/queue"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/store"
)

// ownerHeader carries the caller identity. Authentication proper is
// handled upstream of this service.
const ownerHeader = "X-Owner-ID"

type PodcastHandler struct {
	store  *store.Service
	queue  *queue.Client
	status *queue.StatusService
}

func NewPodcastHandler(st *store.Service, qc *queue.Client, status *queue.StatusService) *PodcastHandler {
	return &PodcastHandler{store: st, queue: qc, status: status}
}

type createPodcastRequest struct {
	Title    string           `json:"title"`
	Articles []models.Article `json:"articles"`
}

type createPodcastResponse struct {
	Podcast *models.Podcast `json:"podcast"`
	TaskID  string          `json:"task_id"`
}

// Create inserts a pending job record and enqueues generation. The
// record is created first so a queue outage leaves a visible pending row
// instead of silently dropping the request.
func (h *PodcastHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var req createPodcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Articles) == 0 {
		writeError(w, http.StatusBadRequest, "at least one article is required")
		return
	}

	articleIDs := make([]int64, 0, len(req.Articles))
	for _, a := range req.Articles {
		if a.ID != 0 {
			articleIDs = append(articleIDs, a.ID)
		}
	}

	podcast, err := h.store.Create(r.Context(), ownerID, req.Title, articleIDs)
	if err != nil {
		slog.Error("podcast create failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not create podcast")
		return
	}

	taskID, err := h.queue.EnqueuePodcastGenerate(queue.PodcastGeneratePayload{
		PodcastID: podcast.ID,
		UserID:    ownerID,
		Articles:  req.Articles,
	})
	if err != nil {
		slog.Error("podcast enqueue failed", "podcast_id", podcast.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not enqueue generation")
		return
	}

	writeJSON(w, http.StatusAccepted, createPodcastResponse{Podcast: podcast, TaskID: taskID})
}

func (h *PodcastHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	podcasts, err := h.store.List(r.Context(), ownerID, limit, offset)
	if err != nil {
		slog.Error("podcast list failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list podcasts")
		return
	}
	if podcasts == nil {
		podcasts = []models.Podcast{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"podcasts": podcasts})
}

func (h *PodcastHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid podcast id")
		return
	}

	podcast, err := h.store.GetByID(r.Context(), id, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "podcast not found")
		return
	}
	if err != nil {
		slog.Error("podcast get failed", "podcast_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not fetch podcast")
		return
	}
	writeJSON(w, http.StatusOK, podcast)
}

func (h *PodcastHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid podcast id")
		return
	}

	err = h.store.Delete(r.Context(), id, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "podcast not found")
		return
	}
	if err != nil {
		slog.Error("podcast delete failed", "podcast_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete podcast")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Audio streams the finished WAV file. ServeFile handles range requests,
// which audio players rely on for seeking.
func (h *PodcastHandler) Audio(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid podcast id")
		return
	}

	podcast, err := h.store.GetByID(r.Context(), id, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "podcast not found")
		return
	}
	if err != nil {
		slog.Error("podcast get failed", "podcast_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not fetch podcast")
		return
	}
	if podcast.AudioFilePath == "" {
		writeError(w, http.StatusNotFound, "podcast has no audio")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, podcast.AudioFilePath)
}

func (h *PodcastHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task id is required")
		return
	}

	st, err := h.status.TaskStatus(r.Context(), taskID)
	if errors.Is(err, queue.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		slog.Error("task status failed", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not fetch task status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func ownerFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(ownerHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, ownerHeader+" header is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+ownerHeader+" header")
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
