package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"habitloop/internal/middleware"
	"habitloop/internal/stats"
)

type StatsHandler struct {
	calc *stats.Calculator
	log  *zap.Logger
}

func NewStatsHandler(calc *stats.Calculator, log *zap.Logger) *StatsHandler {
	return &StatsHandler{calc: calc, log: log}
}

func (h *StatsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	profile, err := h.calc.Profile(r.Context(), userID, time.Now())
	if err != nil {
		h.log.Error("profile stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not compute stats")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
