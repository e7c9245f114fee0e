package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/realtime"
	"github.com/JakeFAU/crawler-console/internal/state"
)

const (
	defaultTaskLimit = 50
	maxTaskLimit     = 500
)

// StateHandler exposes read-only container snapshots.
type StateHandler struct {
	stores   *state.Stores
	channels ChannelStates
	logger   *zap.Logger
}

func newStateHandler(stores *state.Stores, channels ChannelStates, logger *zap.Logger) *StateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateHandler{stores: stores, channels: channels, logger: logger}
}

// ListTasks handles GET /v1/state/tasks?status=&limit=&offset=. It returns
// {"tasks": [...], "total": n, "activeTaskId": id}, 400 for invalid filters
// or 503 when no task container is wired.
func (h *StateHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	if h.stores == nil || h.stores.Tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "task container unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultTaskLimit, maxTaskLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status crawler.TaskStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status = crawler.TaskStatus(strings.ToLower(raw))
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	snap := h.stores.Tasks.Snapshot()
	matched := make([]crawler.Task, 0, len(snap.Tasks))
	for _, task := range snap.Tasks {
		if status == "" || task.Status == status {
			matched = append(matched, task)
		}
	}
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks":        matched[offset:end],
		"total":        total,
		"activeTaskId": snap.ActiveTaskID,
		"version":      snap.Version,
	})
}

// GetTask handles GET /v1/state/tasks/{task_id}. It returns
// {"task": {...}, "progress": {...}} or 404 when the container does not hold
// the task.
func (h *StateHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	if h.stores == nil || h.stores.Tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "task container unavailable")
		return
	}
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}
	snap := h.stores.Tasks.Snapshot()
	task, ok := snap.Task(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	p, _ := snap.ProgressOf(taskID)
	writeJSON(w, http.StatusOK, map[string]any{"task": task, "progress": p})
}

// Results handles GET /v1/state/results.
func (h *StateHandler) Results(w http.ResponseWriter, _ *http.Request) {
	if h.stores == nil || h.stores.Results == nil {
		writeError(w, http.StatusServiceUnavailable, "result container unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.stores.Results.Snapshot())
}

// UI handles GET /v1/state/ui.
func (h *StateHandler) UI(w http.ResponseWriter, _ *http.Request) {
	if h.stores == nil || h.stores.UI == nil {
		writeError(w, http.StatusServiceUnavailable, "ui container unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.stores.UI.Snapshot())
}

// Crawler handles GET /v1/state/crawler.
func (h *StateHandler) Crawler(w http.ResponseWriter, _ *http.Request) {
	if h.stores == nil || h.stores.Crawler == nil {
		writeError(w, http.StatusServiceUnavailable, "crawler container unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.stores.Crawler.Snapshot())
}

// Channels handles GET /v1/state/channels, returning {"channels": {id: state}}.
func (h *StateHandler) Channels(w http.ResponseWriter, _ *http.Request) {
	states := map[string]realtime.State{}
	if h.channels != nil {
		states = h.channels.States()
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": states})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}
