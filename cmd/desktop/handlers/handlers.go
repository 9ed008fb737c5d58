// Package handlers provides the desktop REST API for captures, sync, and the
// merged feed.
package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/gateway"
)

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps application error codes to HTTP statuses and writes a
// structured error body.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	if se, ok := err.(*gateway.SaveError); ok {
		code = se.Code()
	}

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrInvalid, apperrors.ErrValidation, apperrors.ErrConfigInvalid:
		status = http.StatusBadRequest
	case apperrors.ErrNotFound, apperrors.ErrQueueItemNotFound:
		status = http.StatusNotFound
	case apperrors.ErrSyncInProgress:
		status = http.StatusConflict
	case apperrors.ErrSyncOffline, apperrors.ErrGatewayOffline:
		status = http.StatusServiceUnavailable
	case apperrors.ErrGatewayPermission:
		status = http.StatusForbidden
	case apperrors.ErrGatewayQuota:
		status = http.StatusInsufficientStorage
	case apperrors.ErrGatewayNetwork:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    string(code),
			"message": err.Error(),
		},
	})
}
