package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keepsakehq/keepsake/core/internal/connectivity"
	"github.com/keepsakehq/keepsake/core/internal/feed"
	"github.com/keepsakehq/keepsake/core/internal/kvstore"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/preview"
	"github.com/keepsakehq/keepsake/core/internal/queue"
)

type staticRemote struct {
	page *feed.RemotePage
}

func (r *staticRemote) FetchPage(_ context.Context, _ *feed.Cursor, _ models.MemoryType, _ int) (*feed.RemotePage, error) {
	return r.page, nil
}

func newFeedMux(t *testing.T, online bool) (*http.ServeMux, *queue.Store, *preview.Index) {
	t.Helper()
	kv := kvstore.NewMemory()
	store := queue.NewStore(kv, kvstore.KeyMemoryQueue)
	index := preview.NewIndex(kv, kvstore.KeyPreviewIndex)
	remote := &staticRemote{page: &feed.RemotePage{}}
	merger := feed.NewMerger(store, index, remote)
	h := NewFeedHandler(merger, index, connectivity.NewManual(online))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feed", h.Page)
	mux.HandleFunc("DELETE /api/previews", h.ClearPreviews)
	return mux, store, index
}

func TestFeedPageOfflineServesQueueAndPreviews(t *testing.T) {
	mux, store, index := newFeedMux(t, false)
	store.Enqueue(models.QueuedMemory{LocalID: "q1", MemoryType: models.MemoryTypeMoment, CapturedAt: 300, Status: models.SyncStatusQueued})
	index.Upsert([]models.MemoryPreview{
		{ServerID: "s1", MemoryType: models.MemoryTypeStory, CapturedAt: 200},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/feed?limit=10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var page feed.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(page.Memories))
	}
	if !page.Memories[0].IsOfflineQueued {
		t.Error("newest entry should be the queued capture")
	}
	if !page.Memories[1].IsPreviewOnly {
		t.Error("second entry should be the cached preview")
	}
}

func TestFeedPageRejectsBadLimit(t *testing.T) {
	mux, _, _ := newFeedMux(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/feed?limit=zero", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFeedPageRejectsUnknownTypeFilter(t *testing.T) {
	mux, _, _ := newFeedMux(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/feed?types=moment,dream", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFeedPageAppliesTypeFilter(t *testing.T) {
	mux, store, _ := newFeedMux(t, false)
	store.Enqueue(models.QueuedMemory{LocalID: "q1", MemoryType: models.MemoryTypeMoment, CapturedAt: 300, Status: models.SyncStatusQueued})
	store.Enqueue(models.QueuedMemory{LocalID: "q2", MemoryType: models.MemoryTypeStory, CapturedAt: 200, Status: models.SyncStatusQueued})

	req := httptest.NewRequest(http.MethodGet, "/api/feed?types=story", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var page feed.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Memories) != 1 || page.Memories[0].LocalID != "q2" {
		t.Fatalf("expected only the story capture, got %+v", page.Memories)
	}
}

func TestClearPreviewsLeavesQueueIntact(t *testing.T) {
	mux, store, index := newFeedMux(t, false)
	store.Enqueue(models.QueuedMemory{LocalID: "q1", MemoryType: models.MemoryTypeMoment, Status: models.SyncStatusQueued})
	index.Upsert([]models.MemoryPreview{{ServerID: "s1", MemoryType: models.MemoryTypeMoment}})

	req := httptest.NewRequest(http.MethodDelete, "/api/previews", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if index.Count() != 0 {
		t.Errorf("previews not cleared: %d", index.Count())
	}
	if store.Count() != 1 {
		t.Errorf("queue must survive preview clear: %d", store.Count())
	}
}
