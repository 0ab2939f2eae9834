package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitloop/internal/middleware"
	"habitloop/internal/models"
	"habitloop/internal/store"
)

type HabitHandler struct {
	habits store.HabitStore
	log    *zap.Logger
}

func NewHabitHandler(habits store.HabitStore, log *zap.Logger) *HabitHandler {
	return &HabitHandler{habits: habits, log: log}
}

type habitRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Frequency   string       `json:"frequency"`
	Tags        []models.Tag `json:"tags"`
}

func (req *habitRequest) validate() (string, models.Frequency, string) {
	name := strings.TrimSpace(req.Name)
	if len(name) < 3 || len(name) > 50 {
		return "", "", "name must be between 3 and 50 characters"
	}
	freq := models.Frequency(req.Frequency)
	if freq == "" {
		freq = models.FrequencyDaily
	}
	if !freq.Valid() {
		return "", "", "frequency must be daily or weekly"
	}
	return name, freq, ""
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	habits, err := h.habits.HabitsByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list habits", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list habits")
		return
	}
	if habits == nil {
		habits = []models.Habit{}
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, freq, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	habit := &models.Habit{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Frequency:   freq,
		CreatedAt:   time.Now(),
	}
	if err := h.habits.CreateHabit(r.Context(), habit); err != nil {
		h.log.Error("create habit", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create habit")
		return
	}
	if len(req.Tags) > 0 {
		tags, err := h.habits.ReplaceTags(r.Context(), habit.ID, req.Tags)
		if err != nil {
			h.log.Error("set habit tags", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not create habit")
			return
		}
		habit.Tags = tags
	}
	if habit.Tags == nil {
		habit.Tags = []models.Tag{}
	}
	writeJSON(w, http.StatusCreated, habit)
}

// owned loads the habit from the path and checks it belongs to the caller.
// Someone else's habit id reads the same as a missing one.
func (h *HabitHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Habit, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	habitID, err := uuid.Parse(chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid habit id")
		return nil, false
	}
	habit, err := h.habits.HabitByID(r.Context(), habitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "habit not found")
			return nil, false
		}
		h.log.Error("load habit", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load habit")
		return nil, false
	}
	if habit.UserID != userID {
		writeError(w, http.StatusNotFound, "habit not found")
		return nil, false
	}
	return habit, true
}

func (h *HabitHandler) Get(w http.ResponseWriter, r *http.Request) {
	habit, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	habit, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// omitting frequency on update keeps the current one
	if req.Frequency == "" {
		req.Frequency = string(habit.Frequency)
	}
	name, freq, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	habit.Name = name
	habit.Description = strings.TrimSpace(req.Description)
	habit.Frequency = freq
	if err := h.habits.UpdateHabit(r.Context(), habit); err != nil {
		h.log.Error("update habit", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not update habit")
		return
	}
	tags, err := h.habits.ReplaceTags(r.Context(), habit.ID, req.Tags)
	if err != nil {
		h.log.Error("set habit tags", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not update habit")
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	habit.Tags = tags
	writeJSON(w, http.StatusOK, habit)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	habit, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.habits.DeleteHabit(r.Context(), habit.ID); err != nil {
		h.log.Error("delete habit", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete habit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
