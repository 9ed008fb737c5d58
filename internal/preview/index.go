// Package preview provides the local read-only cache of remote-memory
// summaries used for offline browsing of history beyond the queue.
package preview

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/kvstore"
	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/models"
)

// Index persists lightweight snapshots of already-synced remote memories.
// Rows upsert by ServerID; at most one row per remote memory.
type Index struct {
	mu  sync.Mutex
	kv  kvstore.Store
	key string
}

// NewIndex creates a preview index persisting under key in kv.
func NewIndex(kv kvstore.Store, key string) *Index {
	if key == "" {
		key = kvstore.KeyPreviewIndex
	}
	return &Index{kv: kv, key: key}
}

// load reads the persisted previews. Same fail-open policy as the queue
// store: corrupted data reads as empty.
func (ix *Index) load() []models.MemoryPreview {
	raw, ok, err := ix.kv.Get(ix.key)
	if err != nil {
		logging.ErrorWithCode("Failed to read preview index", string(errors.ErrStorage), err, nil)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var previews []models.MemoryPreview
	if err := json.Unmarshal([]byte(raw), &previews); err != nil {
		logging.Warn("Corrupted preview index blob, starting empty",
			map[string]interface{}{"size": len(raw)})
		return nil
	}
	return previews
}

func (ix *Index) persist(previews []models.MemoryPreview) error {
	data, err := json.Marshal(previews)
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "failed to serialize preview index", err)
	}
	if err := ix.kv.Set(ix.key, string(data)); err != nil {
		return errors.Wrap(errors.ErrStorage, "failed to persist preview index", err)
	}
	return nil
}

// Upsert merges batch into the index by ServerID: existing rows are fully
// replaced, new ones appended. One persisted write covers the whole batch.
func (ix *Index) Upsert(batch []models.MemoryPreview) error {
	if len(batch) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	previews := ix.load()
	byServer := make(map[string]int, len(previews))
	for i, p := range previews {
		byServer[p.ServerID] = i
	}

	for _, p := range batch {
		if i, ok := byServer[p.ServerID]; ok {
			previews[i] = p
		} else {
			byServer[p.ServerID] = len(previews)
			previews = append(previews, p)
		}
	}

	return ix.persist(previews)
}

// Fetch returns previews matching the type filter (all types when the filter
// set is empty), sorted by capture time descending, truncated to limit.
// A limit <= 0 means no truncation.
func (ix *Index) Fetch(filters map[models.MemoryType]bool, limit int) []models.MemoryPreview {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var out []models.MemoryPreview
	for _, p := range ix.load() {
		if len(filters) > 0 && !filters[p.MemoryType] {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CapturedAt > out[j].CapturedAt
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RemoveByServerID drops the preview for a memory confirmed deleted
// server-side, so a stale row cannot resurrect a ghost feed card.
func (ix *Index) RemoveByServerID(serverID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	previews := ix.load()
	kept := previews[:0]
	for _, p := range previews {
		if p.ServerID != serverID {
			kept = append(kept, p)
		}
	}
	return ix.persist(kept)
}

// Clear wipes the whole index. Used on logout/cache reset.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.persist(nil)
}

// Count returns the number of cached previews.
func (ix *Index) Count() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.load())
}
