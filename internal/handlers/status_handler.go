package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
)

// StatusHandler serves liveness and credential status
type StatusHandler struct {
	statusService StatusReporter
	logger        arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(statusService StatusReporter, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		logger:        logger,
	}
}

// HealthHandler handles GET /health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, h.statusService.Health())
}

// APIStatusHandler handles GET /api-status
func (h *StatusHandler) APIStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, h.statusService.APIStatus(r.Context()))
}
