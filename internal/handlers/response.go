package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// parseDate accepts YYYY-MM-DD or RFC3339, normalizing either to the local
// calendar day it names.
func parseDate(s string) (time.Time, bool) {
	if d, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.Local(), true
	}
	return time.Time{}, false
}
