package handlers

import (
	"net/http"
	"time"
)

// Health returns a handler reporting server uptime.
func (h *Handlers) Health(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, map[string]interface{}{
			"status": "ok",
			"uptime": time.Since(startTime).String(),
		})
	}
}
