package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"habitloop/internal/dates"
	"habitloop/internal/models"
	"habitloop/internal/progress"
	"habitloop/internal/store"
)

type ProgressHandler struct {
	habits   store.HabitStore
	progress store.ProgressStore
	toggler  *progress.Toggler
	owner    *HabitHandler
	log      *zap.Logger
}

func NewProgressHandler(habits store.HabitStore, progressStore store.ProgressStore, toggler *progress.Toggler, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		habits:   habits,
		progress: progressStore,
		toggler:  toggler,
		owner:    &HabitHandler{habits: habits, log: log},
		log:      log,
	}
}

type toggleRequest struct {
	Date string `json:"date"`
}

// Toggle flips the completion state of a habit for the requested date,
// defaulting to today. Weekly habits flip their whole week.
func (h *ProgressHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	habit, ok := h.owner.owned(w, r)
	if !ok {
		return
	}

	day := time.Now()
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Date != "" {
		parsed, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC3339")
			return
		}
		day = parsed
	}

	res, err := h.toggler.Toggle(r.Context(), habit.ID, day)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "habit not found")
			return
		}
		h.log.Error("toggle progress", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not toggle progress")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Get returns the completion record for one habit on one date, or
// completed=false when none exists.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	habit, ok := h.owner.owned(w, r)
	if !ok {
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, ok := parseDate(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC3339")
			return
		}
		day = parsed
	}
	day = dates.Normalize(day)

	rec, err := h.progress.FindOne(r.Context(), habit.ID, day)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"date":      dates.Key(day),
				"completed": false,
				"progress":  (*models.Progress)(nil),
			})
			return
		}
		h.log.Error("read progress", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not read progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":      dates.Key(day),
		"completed": true,
		"progress":  rec,
	})
}
