package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/media"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/queue"
	"github.com/keepsakehq/keepsake/core/internal/uuid"
)

// CaptureHandler manages the offline capture queue over REST.
type CaptureHandler struct {
	store     *queue.Store
	posterDir string
	maxEdge   int
	now       func() time.Time
}

// NewCaptureHandler creates a CaptureHandler. posterDir may be empty to skip
// poster generation.
func NewCaptureHandler(store *queue.Store, posterDir string, posterMaxEdge int) *CaptureHandler {
	return &CaptureHandler{
		store:     store,
		posterDir: posterDir,
		maxEdge:   posterMaxEdge,
		now:       time.Now,
	}
}

// captureRequest is the mutable subset of a queued memory accepted over REST.
type captureRequest struct {
	MemoryType models.MemoryType `json:"memory_type"`
	InputText  string            `json:"input_text"`
	Title      string            `json:"title"`
	Tags       []string          `json:"tags"`
	MemoryDate int64             `json:"memory_date"`

	PhotoPaths    []string `json:"photo_paths"`
	VideoPaths    []string `json:"video_paths"`
	AudioPath     string   `json:"audio_path"`
	AudioDuration int      `json:"audio_duration"`

	Latitude       float64              `json:"latitude"`
	Longitude      float64              `json:"longitude"`
	LocationStatus string               `json:"location_status"`
	Location       *models.LocationData `json:"location"`
}

func (r *captureRequest) validate() error {
	if !r.MemoryType.IsValid() {
		return apperrors.New(apperrors.ErrValidation, "memory_type must be one of moment, story, memento")
	}
	hasContent := strings.TrimSpace(r.InputText) != "" ||
		len(r.PhotoPaths) > 0 || len(r.VideoPaths) > 0 || r.AudioPath != ""
	if !hasContent {
		return apperrors.New(apperrors.ErrValidation, "capture requires text, photos, videos, or audio")
	}
	return nil
}

// Create handles POST /api/captures. The capture is persisted locally and
// queued for sync; the response returns immediately with the local record.
func (h *CaptureHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	now := h.now().Unix()
	record := models.QueuedMemory{
		LocalID:        uuid.New(),
		MemoryType:     req.MemoryType,
		InputText:      req.InputText,
		Title:          req.Title,
		Tags:           req.Tags,
		CapturedAt:     now,
		MemoryDate:     req.MemoryDate,
		CreatedAt:      now,
		PhotoPaths:     req.PhotoPaths,
		VideoPaths:     req.VideoPaths,
		AudioPath:      req.AudioPath,
		AudioDuration:  req.AudioDuration,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		LocationStatus: req.LocationStatus,
		Location:       req.Location,
		Status:         models.SyncStatusQueued,
	}

	if h.posterDir != "" && len(record.PhotoPaths) > 0 {
		media.PhotoPosters(&record, h.posterDir, h.maxEdge)
	}

	if err := h.store.Enqueue(record); err != nil {
		writeError(w, err)
		return
	}

	logging.Info("Capture queued", map[string]interface{}{
		"local_id":    record.LocalID,
		"memory_type": string(record.MemoryType),
	})
	writeJSON(w, http.StatusCreated, record)
}

// List handles GET /api/captures, optionally filtered by ?status=.
func (h *CaptureHandler) List(w http.ResponseWriter, r *http.Request) {
	var records []models.QueuedMemory
	if status := r.URL.Query().Get("status"); status != "" {
		records = h.store.ByStatus(models.SyncStatus(status))
	} else {
		records = h.store.All()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"captures": records,
		"count":    len(records),
	})
}

// Get handles GET /api/captures/{localId}.
func (h *CaptureHandler) Get(w http.ResponseWriter, r *http.Request) {
	localID := r.PathValue("localId")
	record := h.store.GetByLocalID(localID)
	if record == nil {
		writeError(w, apperrors.New(apperrors.ErrQueueItemNotFound, "no queued capture with id "+localID))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Update handles PATCH /api/captures/{localId}. Content fields of a still
// queued or failed capture are replaced; sync bookkeeping is preserved, so an
// edit never resets retry counts or status.
func (h *CaptureHandler) Update(w http.ResponseWriter, r *http.Request) {
	localID := r.PathValue("localId")
	existing := h.store.GetByLocalID(localID)
	if existing == nil {
		writeError(w, apperrors.New(apperrors.ErrQueueItemNotFound, "no queued capture with id "+localID))
		return
	}

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if req.MemoryType == "" {
		req.MemoryType = existing.MemoryType
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	updated := *existing
	updated.MemoryType = req.MemoryType
	updated.InputText = req.InputText
	updated.Title = req.Title
	updated.Tags = req.Tags
	updated.MemoryDate = req.MemoryDate
	updated.PhotoPaths = req.PhotoPaths
	updated.VideoPaths = req.VideoPaths
	updated.AudioPath = req.AudioPath
	updated.AudioDuration = req.AudioDuration
	updated.Latitude = req.Latitude
	updated.Longitude = req.Longitude
	updated.LocationStatus = req.LocationStatus
	updated.Location = req.Location

	if err := h.store.Update(updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/captures/{localId}. Removing an absent record is
// an error so double-taps in the UI surface instead of silently passing.
func (h *CaptureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	localID := r.PathValue("localId")
	if err := h.store.Remove(localID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "removed",
		"local_id": localID,
	})
}

// Clear handles DELETE /api/captures. The whole queue is wiped, pending
// uploads included; this backs logout and local reset flows.
func (h *CaptureHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "cleared"})
}

// Status handles GET /api/captures/status with per-state counts.
func (h *CaptureHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   h.store.Count(),
		"queued":  h.store.CountByStatus(models.SyncStatusQueued),
		"syncing": h.store.CountByStatus(models.SyncStatusSyncing),
		"failed":  h.store.CountByStatus(models.SyncStatusFailed),
	})
}
