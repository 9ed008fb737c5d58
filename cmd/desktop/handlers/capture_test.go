package handlers

import (
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keepsakehq/keepsake/core/internal/kvstore"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/queue"
)

func newCaptureMux(t *testing.T) (*http.ServeMux, *queue.Store) {
	t.Helper()
	store := queue.NewStore(kvstore.NewMemory(), kvstore.KeyMemoryQueue)
	h := NewCaptureHandler(store, "", 0)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/captures", h.Create)
	mux.HandleFunc("GET /api/captures", h.List)
	mux.HandleFunc("DELETE /api/captures", h.Clear)
	mux.HandleFunc("GET /api/captures/status", h.Status)
	mux.HandleFunc("GET /api/captures/{localId}", h.Get)
	mux.HandleFunc("PATCH /api/captures/{localId}", h.Update)
	mux.HandleFunc("DELETE /api/captures/{localId}", h.Delete)
	return mux, store
}

func TestCreateCaptureQueuesRecord(t *testing.T) {
	mux, store := newCaptureMux(t)

	body := `{"memory_type":"moment","input_text":"first snow of the year"}`
	req := httptest.NewRequest(http.MethodPost, "/api/captures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.QueuedMemory
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.LocalID == "" {
		t.Error("expected generated local id")
	}
	if created.Status != models.SyncStatusQueued {
		t.Errorf("expected queued status, got %s", created.Status)
	}
	if created.CapturedAt == 0 || created.CreatedAt == 0 {
		t.Error("expected capture timestamps to be set")
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 queued record, got %d", store.Count())
	}
}

func TestCreateCaptureRejectsEmptyContent(t *testing.T) {
	mux, store := newCaptureMux(t)

	body := `{"memory_type":"moment","input_text":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/captures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if store.Count() != 0 {
		t.Error("invalid capture must not be queued")
	}
}

func TestCreateCaptureRejectsUnknownType(t *testing.T) {
	mux, _ := newCaptureMux(t)

	body := `{"memory_type":"daydream","input_text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/captures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListCapturesFiltersByStatus(t *testing.T) {
	mux, store := newCaptureMux(t)
	store.Enqueue(models.QueuedMemory{LocalID: "a", MemoryType: models.MemoryTypeMoment, Status: models.SyncStatusQueued, CreatedAt: 1})
	store.Enqueue(models.QueuedMemory{LocalID: "b", MemoryType: models.MemoryTypeStory, Status: models.SyncStatusFailed, CreatedAt: 2})

	req := httptest.NewRequest(http.MethodGet, "/api/captures?status=failed", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp struct {
		Captures []models.QueuedMemory `json:"captures"`
		Count    int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Captures[0].LocalID != "b" {
		t.Errorf("expected only failed record b, got %+v", resp.Captures)
	}
}

func TestUpdateCapturePreservesSyncBookkeeping(t *testing.T) {
	mux, store := newCaptureMux(t)
	store.Enqueue(models.QueuedMemory{
		LocalID:    "edit-me",
		MemoryType: models.MemoryTypeMoment,
		InputText:  "draft",
		Status:     models.SyncStatusFailed,
		RetryCount: 2,
		CreatedAt:  100,
	})

	body := `{"input_text":"final text","title":"Now titled"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/captures/edit-me", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := store.GetByLocalID("edit-me")
	if got.InputText != "final text" || got.Title != "Now titled" {
		t.Errorf("content fields not replaced: %+v", got)
	}
	if got.Status != models.SyncStatusFailed || got.RetryCount != 2 {
		t.Errorf("edit must not reset sync bookkeeping: status=%s retries=%d", got.Status, got.RetryCount)
	}
}

func TestDeleteMissingCaptureReturns404(t *testing.T) {
	mux, _ := newCaptureMux(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/captures/ghost", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing record, got %d", rec.Code)
	}
}

func TestCaptureStatusCounts(t *testing.T) {
	mux, store := newCaptureMux(t)
	store.Enqueue(models.QueuedMemory{LocalID: "a", MemoryType: models.MemoryTypeMoment, Status: models.SyncStatusQueued})
	store.Enqueue(models.QueuedMemory{LocalID: "b", MemoryType: models.MemoryTypeMoment, Status: models.SyncStatusQueued})
	store.Enqueue(models.QueuedMemory{LocalID: "c", MemoryType: models.MemoryTypeMoment, Status: models.SyncStatusFailed})

	req := httptest.NewRequest(http.MethodGet, "/api/captures/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["total"] != 3 || resp["queued"] != 2 || resp["failed"] != 1 {
		t.Errorf("unexpected counts: %v", resp)
	}
}

// writeTestJPEG writes a small solid-color JPEG fixture.
func writeTestJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 140, B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
}

func TestCreateCaptureRecordsGeneratedPosters(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "sunset.jpg")
	writeTestJPEG(t, photo)
	posterDir := filepath.Join(dir, "posters")

	store := queue.NewStore(kvstore.NewMemory(), kvstore.KeyMemoryQueue)
	h := NewCaptureHandler(store, posterDir, 32)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/captures", h.Create)

	body, _ := json.Marshal(map[string]interface{}{
		"memory_type": "moment",
		"photo_paths": []string{photo},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/captures", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.QueuedMemory
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(created.PhotoPosterPaths) != 1 {
		t.Fatalf("response record missing poster path: %+v", created.PhotoPosterPaths)
	}
	if _, err := os.Stat(created.PhotoPosterPaths[0]); err != nil {
		t.Errorf("poster file missing on disk: %v", err)
	}

	stored := store.GetByLocalID(created.LocalID)
	if stored == nil || len(stored.PhotoPosterPaths) != 1 {
		t.Fatalf("persisted record missing poster path: %+v", stored)
	}
	if stored.PhotoPosterPaths[0] != created.PhotoPosterPaths[0] {
		t.Errorf("stored poster %q differs from response %q", stored.PhotoPosterPaths[0], created.PhotoPosterPaths[0])
	}
}

func TestClearWipesWholeQueue(t *testing.T) {
	mux, store := newCaptureMux(t)
	store.Enqueue(models.QueuedMemory{LocalID: "a", MemoryType: models.MemoryTypeMoment, Status: models.SyncStatusQueued})
	store.Enqueue(models.QueuedMemory{LocalID: "b", MemoryType: models.MemoryTypeStory, Status: models.SyncStatusFailed})

	req := httptest.NewRequest(http.MethodDelete, "/api/captures", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.Count() != 0 {
		t.Errorf("expected empty queue after clear, got %d records", store.Count())
	}
}
