package handlers

import (
	"net/http"

	"github.com/keepsakehq/keepsake/core/internal/connectivity"
	apperrors "github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/queue"
	"github.com/keepsakehq/keepsake/core/internal/syncer"
)

// SyncBroadcaster receives sync pass events for push delivery.
type SyncBroadcaster interface {
	BroadcastSyncStarted(pending int)
	BroadcastSyncCompleted(remaining int, failed int)
	BroadcastSyncFailed(errorCode string)
}

// SyncHandler exposes manual sync triggers and status over REST.
type SyncHandler struct {
	store  *queue.Store
	syncer *syncer.Syncer
	oracle connectivity.Oracle
	hub    SyncBroadcaster
}

// NewSyncHandler creates a SyncHandler. hub may be nil when no push channel
// exists.
func NewSyncHandler(store *queue.Store, s *syncer.Syncer, oracle connectivity.Oracle, hub SyncBroadcaster) *SyncHandler {
	return &SyncHandler{store: store, syncer: s, oracle: oracle, hub: hub}
}

// TriggerAll handles POST /api/sync/now and runs one batch pass.
func (h *SyncHandler) TriggerAll(w http.ResponseWriter, r *http.Request) {
	pending := h.store.CountByStatus(models.SyncStatusQueued) + h.store.CountByStatus(models.SyncStatusFailed)
	if h.hub != nil {
		h.hub.BroadcastSyncStarted(pending)
	}

	if err := h.syncer.SyncAll(r.Context()); err != nil {
		if h.hub != nil {
			h.hub.BroadcastSyncFailed(string(apperrors.CodeOf(err)))
		}
		writeError(w, err)
		return
	}

	remaining := h.store.CountByStatus(models.SyncStatusQueued)
	failed := h.store.CountByStatus(models.SyncStatusFailed)
	if h.hub != nil {
		h.hub.BroadcastSyncCompleted(remaining, failed)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "completed",
		"remaining": remaining,
		"failed":    failed,
	})
}

// TriggerOne handles POST /api/sync/captures/{localId}. Unlike the batch
// pass, single-record failures surface to the caller.
func (h *SyncHandler) TriggerOne(w http.ResponseWriter, r *http.Request) {
	localID := r.PathValue("localId")
	if err := h.syncer.SyncOne(r.Context(), localID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "completed",
		"local_id": localID,
	})
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":  h.oracle.IsOnline(r.Context()),
		"syncing": h.syncer.IsSyncing(),
		"pending": h.store.CountByStatus(models.SyncStatusQueued),
		"failed":  h.store.CountByStatus(models.SyncStatusFailed),
	})
}
