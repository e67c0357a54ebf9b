package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
)

const apiKeysPath = "/settings/api-keys"

// SettingsHandler manages API keys stored at runtime
type SettingsHandler struct {
	keys   KeyStore
	logger arbor.ILogger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(keys KeyStore, logger arbor.ILogger) *SettingsHandler {
	return &SettingsHandler{
		keys:   keys,
		logger: logger,
	}
}

type setKeyRequest struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// APIKeysHandler handles GET (list) and POST (store) /settings/api-keys
func (h *SettingsHandler) APIKeysHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		keys, err := h.keys.List(r.Context())
		if err != nil {
			writeServiceError(w, h.logger, err, "List API keys")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
	case http.MethodPost:
		var req setKeyRequest
		if err := DecodeJSON(r, &req); err != nil {
			writeServiceError(w, h.logger, err, "Store API key")
			return
		}

		info, err := h.keys.Set(r.Context(), req.Name, req.Value)
		if err != nil {
			writeServiceError(w, h.logger, err, "Store API key")
			return
		}
		WriteJSON(w, http.StatusOK, info)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// DeleteAPIKeyHandler handles DELETE /settings/api-keys/{name}
func (h *SettingsHandler) DeleteAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, apiKeysPath+"/"))
	if err != nil || name == "" || strings.Contains(name, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid key name")
		return
	}

	if err := h.keys.Delete(r.Context(), name); err != nil {
		writeServiceError(w, h.logger, err, "Delete API key")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "deleted",
		"name":    name,
		"message": "Key removed",
	})
}
