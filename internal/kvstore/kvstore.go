// Package kvstore provides the persisted key-value primitive backing the
// queue store and preview index. Each collection serializes to a single value
// under one key; a mutation is read-entire, modify-in-memory, write-entire.
package kvstore

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key. The second return is false when the key
	// has never been written or was removed.
	Get(key string) (string, bool, error)

	// Set writes value under key, replacing any previous value. The write is
	// atomic: a reader never observes a partial value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Close releases underlying resources.
	Close() error
}

// Well-known collection keys.
const (
	KeyMemoryQueue  = "memory_queue"
	KeyPreviewIndex = "memory_previews"
)
