// Package queue provides the durable store of captures pending upload.
// The whole collection persists as one JSON blob per mutation; a corrupt blob
// reads as empty so a damaged local cache can never block capture.
package queue

import (
	"encoding/json"
	"sync"

	"github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/kvstore"
	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/models"
)

// Store is the durable queue of not-yet-synced captures.
type Store struct {
	mu        sync.Mutex
	kv        kvstore.Store
	key       string
	observers *observerRegistry
}

// NewStore creates a queue store persisting under key in kv.
func NewStore(kv kvstore.Store, key string) *Store {
	if key == "" {
		key = kvstore.KeyMemoryQueue
	}
	return &Store{
		kv:        kv,
		key:       key,
		observers: newObserverRegistry(),
	}
}

// Subscribe registers an observer for change events and returns an
// unsubscribe func. Events fire synchronously, exactly once per mutation.
func (s *Store) Subscribe(fn func(ChangeEvent)) func() {
	return s.observers.subscribe(fn)
}

// load reads the persisted collection. Corrupted data is treated as an empty
// collection, never surfaced to callers.
func (s *Store) load() []models.QueuedMemory {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		logging.ErrorWithCode("Failed to read memory queue", string(errors.ErrStorage), err, nil)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var records []models.QueuedMemory
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		logging.Warn("Corrupted memory queue blob, starting empty",
			map[string]interface{}{"size": len(raw)})
		return nil
	}
	return records
}

// persist serializes the whole collection back to storage.
func (s *Store) persist(records []models.QueuedMemory) error {
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "failed to serialize memory queue", err)
	}
	if err := s.kv.Set(s.key, string(data)); err != nil {
		return errors.Wrap(errors.ErrStorage, "failed to persist memory queue", err)
	}
	return nil
}

// Enqueue upserts record by LocalID: an existing record with the same id is
// replaced entirely, otherwise the record is appended. Emits added or updated
// accordingly.
func (s *Store) Enqueue(record models.QueuedMemory) error {
	s.mu.Lock()

	records := s.load()
	kind := ChangeAdded
	replaced := false
	for i := range records {
		if records[i].LocalID == record.LocalID {
			records[i] = record
			kind = ChangeUpdated
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}

	if err := s.persist(records); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	logging.Debug("Queue mutated", map[string]interface{}{
		"local_id": record.LocalID,
		"kind":     string(kind),
		"count":    len(records),
	})
	s.observers.emit(ChangeEvent{LocalID: record.LocalID, MemoryType: record.MemoryType, Kind: kind})
	return nil
}

// Update replaces an existing record (or appends, matching enqueue semantics)
// and always emits updated. Used by the synchronizer's bookkeeping writes and
// by edit-while-queued.
func (s *Store) Update(record models.QueuedMemory) error {
	s.mu.Lock()

	records := s.load()
	replaced := false
	for i := range records {
		if records[i].LocalID == record.LocalID {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}

	if err := s.persist(records); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.observers.emit(ChangeEvent{LocalID: record.LocalID, MemoryType: record.MemoryType, Kind: ChangeUpdated})
	return nil
}

// Remove deletes the record with localID. Removing an absent record is a
// caller bug and fails loudly.
func (s *Store) Remove(localID string) error {
	s.mu.Lock()

	records := s.load()
	idx := -1
	for i := range records {
		if records[i].LocalID == localID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return errors.New(errors.ErrQueueItemNotFound, "queued memory not found: "+localID)
	}

	removed := records[idx]
	records = append(records[:idx], records[idx+1:]...)

	if err := s.persist(records); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.observers.emit(ChangeEvent{LocalID: removed.LocalID, MemoryType: removed.MemoryType, Kind: ChangeRemoved})
	return nil
}

// GetByLocalID returns the record with localID, or nil if absent.
func (s *Store) GetByLocalID(localID string) *models.QueuedMemory {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.load() {
		if r.LocalID == localID {
			rec := r
			return &rec
		}
	}
	return nil
}

// All returns every queued record in stored order.
func (s *Store) All() []models.QueuedMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ByStatus returns the records whose status matches, in stored order.
func (s *Store) ByStatus(status models.SyncStatus) []models.QueuedMemory {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.QueuedMemory
	for _, r := range s.load() {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the total number of queued records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load())
}

// CountByStatus returns how many records have the given status.
func (s *Store) CountByStatus(status models.SyncStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.load() {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Clear wipes the whole queue without emitting per-record events. Used on
// logout/cache reset.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(nil)
}
