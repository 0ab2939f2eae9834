package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"habitloop/internal/calendar"
	"habitloop/internal/middleware"
)

type CalendarHandler struct {
	agg *calendar.Aggregator
	log *zap.Logger
}

func NewCalendarHandler(agg *calendar.Aggregator, log *zap.Logger) *CalendarHandler {
	return &CalendarHandler{agg: agg, log: log}
}

// GetMonth renders the month view. month and year default to the current
// period when omitted.
func (h *CalendarHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	now := time.Now()
	month := int(now.Month())
	year := now.Year()
	var err error
	if raw := r.URL.Query().Get("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "month must be a number")
			return
		}
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "year must be a number")
			return
		}
	}

	view, err := h.agg.BuildMonth(r.Context(), userID, year, month, now)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "month must be 1-12 and year 2020-2100")
			return
		}
		h.log.Error("build month view", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not build calendar")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// History renders the Monday-Sunday week containing today.
func (h *CalendarHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	view, err := h.agg.BuildWeek(r.Context(), userID, time.Now())
	if err != nil {
		h.log.Error("build week view", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not build history")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
