package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/keepsakehq/keepsake/core/internal/connectivity"
	apperrors "github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/feed"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/preview"
)

// FeedHandler serves the merged timeline.
type FeedHandler struct {
	merger *feed.Merger
	index  *preview.Index
	oracle connectivity.Oracle
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(merger *feed.Merger, index *preview.Index, oracle connectivity.Oracle) *FeedHandler {
	return &FeedHandler{merger: merger, index: index, oracle: oracle}
}

// Page handles GET /api/feed?cursor=&types=&limit=. The connectivity answer
// is sampled once per request so a page is served from one branch.
func (h *FeedHandler) Page(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	batchSize := feed.DefaultBatchSize
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, apperrors.New(apperrors.ErrInvalid, "limit must be a positive integer"))
			return
		}
		batchSize = n
	}

	filters, err := parseTypeFilters(q.Get("types"))
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.merger.FetchPage(r.Context(), feed.PageRequest{
		Cursor:    q.Get("cursor"),
		Filters:   filters,
		BatchSize: batchSize,
		Online:    h.oracle.IsOnline(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ClearPreviews handles DELETE /api/previews. The preview index is a cache;
// clearing it never touches the offline queue.
func (h *FeedHandler) ClearPreviews(w http.ResponseWriter, r *http.Request) {
	if err := h.index.Clear(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "cleared"})
}

// parseTypeFilters parses a comma-separated type list; empty means all types.
func parseTypeFilters(raw string) (map[models.MemoryType]bool, error) {
	if raw == "" {
		return nil, nil
	}
	filters := make(map[models.MemoryType]bool)
	for _, part := range strings.Split(raw, ",") {
		t := models.MemoryType(strings.TrimSpace(part))
		if !t.IsValid() {
			return nil, apperrors.New(apperrors.ErrInvalid, "unknown memory type "+string(t))
		}
		filters[t] = true
	}
	return filters, nil
}
