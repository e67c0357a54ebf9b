package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/services/kv"
	"github.com/ternarybob/marketpulse/internal/services/sectors"
)

var validate = validator.New()

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// DecodeJSON decodes an optional JSON body into dst and validates it.
// An empty body leaves dst untouched so callers can pre-fill defaults.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return &requestError{err: err}
		}
	}
	return validate.Struct(dst)
}

// requestError marks a body that is not valid JSON
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return "invalid request body: " + e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

// GetLimitParam reads ?limit= and returns fallback when absent or not a positive integer.
func GetLimitParam(r *http.Request, fallback int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			return limit
		}
	}
	return fallback
}

// StatusForError maps a service error to its HTTP status code.
func StatusForError(err error) int {
	var (
		reqErr        *requestError
		validationErr validator.ValidationErrors
		cfgErr        *models.ConfigurationError
		rateErr       *models.RateLimitError
		upstreamErr   *models.UpstreamError
		maxBytesErr   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr), errors.As(err, &validationErr), errors.As(err, &cfgErr), errors.Is(err, kv.ErrUnknownKey):
		return http.StatusBadRequest
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrNotFound), errors.Is(err, interfaces.ErrBlogNotFound), errors.Is(err, interfaces.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, sectors.ErrNoData):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs a failed operation and writes the mapped error response.
func writeServiceError(w http.ResponseWriter, logger arbor.ILogger, err error, operation string) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg(operation + " failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg(operation + " rejected")
	}
	WriteError(w, status, err.Error())
}
