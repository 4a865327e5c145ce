package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type putRequest struct {
	Value string `json:"value"`
}

// PutKey inserts or overwrites a single key.
func (h *Handlers) PutKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeError(w, &BadRequestError{Message: "key is required"})
		return
	}

	var req putRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.table.Insert(key, req.Value); err != nil {
		writeError(w, classifyError(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"key": key})
}

// GetKey retrieves a single key's current value.
func (h *Handlers) GetKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeError(w, &BadRequestError{Message: "key is required"})
		return
	}

	value, found, err := h.table.Get(key)
	if err != nil {
		writeError(w, classifyError(err))
		return
	}
	if !found {
		writeError(w, &KeyNotFoundError{Key: key})
		return
	}
	writeSuccess(w, map[string]interface{}{"key": key, "value": value})
}

// DeleteKey tombstones a single key.
func (h *Handlers) DeleteKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeError(w, &BadRequestError{Message: "key is required"})
		return
	}

	if err := h.table.Delete(key); err != nil {
		writeError(w, classifyError(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"key": key})
}

// RangeKeys retrieves every live key in [start, end].
func (h *Handlers) RangeKeys(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeError(w, &BadRequestError{Message: "start and end query parameters are required"})
		return
	}

	entries, err := h.table.Range(start, end)
	if err != nil {
		writeError(w, classifyError(err))
		return
	}
	writeSuccess(w, entries)
}

// Flush forces the memtable to drain to disk.
func (h *Handlers) Flush(w http.ResponseWriter, r *http.Request) {
	if err := h.table.Flush(); err != nil {
		writeError(w, classifyError(err))
		return
	}
	writeSuccess(w, map[string]interface{}{"flushed": true})
}
