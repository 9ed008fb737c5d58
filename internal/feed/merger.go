// Package feed merges the remote feed, the offline queue, and the preview
// index into one chronologically ordered page for display.
package feed

import (
	"context"
	"sort"

	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/preview"
	"github.com/keepsakehq/keepsake/core/internal/queue"
)

// DefaultBatchSize is the page size when the caller does not specify one.
const DefaultBatchSize = 20

// previewOverfetch is how many preview rows beyond one page the offline
// branch pulls, so hasMore can be determined without a count query.
const previewOverfetch = 3

// PageRequest describes one merged-feed fetch.
type PageRequest struct {
	// Cursor is the opaque remote cursor token; empty means first page.
	// Ignored offline.
	Cursor string

	// Filters restricts memory types. Empty means all types.
	Filters map[models.MemoryType]bool

	BatchSize int

	// Online selects the branch. The caller (UI layer) passes the oracle's
	// point-in-time answer so one refresh uses one consistent branch.
	Online bool
}

// Page is the merged feed result.
type Page struct {
	Memories   []models.TimelineMemory `json:"memories"`
	NextCursor string                  `json:"next_cursor,omitempty"`
	HasMore    bool                    `json:"has_more"`
}

// Merger combines the three feed sources. It does not deduplicate across
// sources: a memory that has just synced may transiently appear via both the
// remote page and the queue until queue removal completes.
type Merger struct {
	store  *queue.Store
	index  *preview.Index
	remote RemoteFeed
}

// NewMerger creates a Merger.
func NewMerger(store *queue.Store, index *preview.Index, remote RemoteFeed) *Merger {
	return &Merger{store: store, index: index, remote: remote}
}

// FetchPage produces one merged page.
func (m *Merger) FetchPage(ctx context.Context, req PageRequest) (*Page, error) {
	if req.BatchSize <= 0 {
		req.BatchSize = DefaultBatchSize
	}
	if req.Online {
		return m.fetchOnline(ctx, req)
	}
	return m.fetchOffline(req), nil
}

// fetchOffline blends the queue and the preview index. No cursor support:
// simple truncation to one page.
func (m *Merger) fetchOffline(req PageRequest) *Page {
	merged := m.queuedTimeline(req.Filters)

	for _, p := range m.index.Fetch(req.Filters, req.BatchSize*previewOverfetch) {
		pv := p
		merged = append(merged, models.TimelineFromPreview(&pv))
	}

	sortByEffectiveDate(merged)

	hasMore := len(merged) > req.BatchSize
	if hasMore {
		merged = merged[:req.BatchSize]
	}

	return &Page{Memories: merged, HasMore: hasMore}
}

// fetchOnline pulls one remote page, refreshes the preview index from it,
// appends matching queued items, then re-sorts and re-pages.
func (m *Merger) fetchOnline(ctx context.Context, req PageRequest) (*Page, error) {
	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	remotePage, err := m.remote.FetchPage(ctx, cursor, pushdownFilter(req.Filters), req.BatchSize)
	if err != nil {
		return nil, err
	}

	// Server truth refreshes the local cache on every successful fetch; this
	// is what keeps offline browsing fresh.
	previews := make([]models.MemoryPreview, 0, len(remotePage.Memories))
	for i := range remotePage.Memories {
		previews = append(previews, remotePage.Memories[i].ToPreview())
	}
	if err := m.index.Upsert(previews); err != nil {
		// Cache refresh failure must not break the feed.
		logging.Warn("Preview refresh failed", map[string]interface{}{"count": len(previews)})
	}

	var merged []models.TimelineMemory
	for i := range remotePage.Memories {
		r := &remotePage.Memories[i]
		if len(req.Filters) > 0 && !req.Filters[r.MemoryType] {
			continue
		}
		merged = append(merged, models.TimelineFromRemote(r))
	}

	merged = append(merged, m.queuedTimeline(req.Filters)...)
	sortByEffectiveDate(merged)

	hasMore := remotePage.HasMore || len(merged) > req.BatchSize
	if len(merged) > req.BatchSize {
		merged = merged[:req.BatchSize]
	}

	return &Page{
		Memories:   merged,
		NextCursor: remotePage.NextCursor.Encode(),
		HasMore:    hasMore,
	}, nil
}

// queuedTimeline maps the current queue contents matching the filter onto the
// timeline shape, tagged as offline-queued.
func (m *Merger) queuedTimeline(filters map[models.MemoryType]bool) []models.TimelineMemory {
	var out []models.TimelineMemory
	for _, q := range m.store.All() {
		if len(filters) > 0 && !filters[q.MemoryType] {
			continue
		}
		rec := q
		out = append(out, models.TimelineFromQueued(&rec))
	}
	return out
}

// pushdownFilter decides what the remote query receives: exactly one selected
// type pushes down; zero, two, or all three fetch unfiltered, with client-side
// post-filtering applied afterwards. The remote filter parameter is binary,
// one type or all, so "two of three" cannot push down.
func pushdownFilter(filters map[models.MemoryType]bool) models.MemoryType {
	if len(filters) != 1 {
		return ""
	}
	for mt := range filters {
		return mt
	}
	return ""
}

// sortByEffectiveDate orders a merged list descending by effective date.
// The sort is stable so same-date items keep their source order.
func sortByEffectiveDate(items []models.TimelineMemory) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].EffectiveDate > items[j].EffectiveDate
	})
}
