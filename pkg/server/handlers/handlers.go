package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mnohosten/lsmkv/pkg/lsm"
)

// Handlers holds the table instance and provides HTTP handlers over its
// public contract.
type Handlers struct {
	table *lsm.Table
}

// New creates a new Handlers instance.
func New(table *lsm.Table) *Handlers {
	return &Handlers{table: table}
}

func parseJSONBody(r *http.Request, target interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &BadRequestError{Message: "failed to read request body"}
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return &BadRequestError{Message: "request body is empty"}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &BadRequestError{Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string { return "key not found: " + e.Key }

type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return e.Message }

// classifyError maps a lsm package error to one of the handler error types,
// so callers can writeError a consistent status code.
func classifyError(err error) error {
	switch {
	case errors.Is(err, lsm.ErrClosed):
		return &InternalError{Message: "table is closed"}
	case errors.Is(err, lsm.ErrInvalidValue):
		return &BadRequestError{Message: err.Error()}
	default:
		return &InternalError{Message: err.Error()}
	}
}

func writeError(w http.ResponseWriter, err error) {
	var statusCode int
	var errorType string
	var message string

	switch e := err.(type) {
	case *BadRequestError:
		statusCode = http.StatusBadRequest
		errorType = "BadRequest"
		message = e.Message
	case *KeyNotFoundError:
		statusCode = http.StatusNotFound
		errorType = "KeyNotFound"
		message = e.Error()
	case *InternalError:
		statusCode = http.StatusInternalServerError
		errorType = "InternalError"
		message = e.Message
	default:
		statusCode = http.StatusInternalServerError
		errorType = "InternalError"
		message = err.Error()
	}

	response := map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func writeSuccess(w http.ResponseWriter, result interface{}) {
	response := map[string]interface{}{
		"ok":     true,
		"result": result,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
