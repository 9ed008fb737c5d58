// Package models provides data model definitions for Keepsake Core.
package models

import "time"

// MemoryType classifies a captured memory.
type MemoryType string

const (
	MemoryTypeMoment  MemoryType = "moment"
	MemoryTypeStory   MemoryType = "story"
	MemoryTypeMemento MemoryType = "memento"
)

// AllMemoryTypes lists every memory type, in display order.
var AllMemoryTypes = []MemoryType{MemoryTypeMoment, MemoryTypeStory, MemoryTypeMemento}

// IsValid reports whether the type is one of the known memory types.
func (t MemoryType) IsValid() bool {
	switch t {
	case MemoryTypeMoment, MemoryTypeStory, MemoryTypeMemento:
		return true
	}
	return false
}

// SyncStatus represents the sync state of a queued memory.
type SyncStatus string

const (
	SyncStatusQueued    SyncStatus = "queued"
	SyncStatusSyncing   SyncStatus = "syncing"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusCompleted SyncStatus = "completed"
)

// LocationData carries the richer location blob attached to a capture.
type LocationData struct {
	DisplayName string  `json:"display_name,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Provenance  string  `json:"provenance,omitempty"` // gps, manual, geocoded
}

// QueuedMemory is a pending, not-yet-synced capture.
// LocalID is the primary key; it is generated at enqueue time and never reused.
type QueuedMemory struct {
	LocalID    string     `json:"local_id"`
	MemoryType MemoryType `json:"memory_type"`

	InputText string   `json:"input_text,omitempty"`
	Title     string   `json:"title,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	CapturedAt int64 `json:"captured_at"`
	MemoryDate int64 `json:"memory_date,omitempty"` // user-intended event time
	CreatedAt  int64 `json:"created_at"`

	// Local media references. Video posters parallel videos by index; photo
	// posters are best effort and may be fewer than photos.
	PhotoPaths       []string `json:"photo_paths,omitempty"`
	PhotoPosterPaths []string `json:"photo_poster_paths,omitempty"`
	VideoPaths       []string `json:"video_paths,omitempty"`
	VideoPosterPaths []string `json:"video_poster_paths,omitempty"`
	AudioPath        string   `json:"audio_path,omitempty"`
	AudioDuration    int      `json:"audio_duration,omitempty"` // seconds

	Latitude       float64       `json:"latitude,omitempty"`
	Longitude      float64       `json:"longitude,omitempty"`
	LocationStatus string        `json:"location_status,omitempty"`
	Location       *LocationData `json:"location,omitempty"`

	// Sync bookkeeping. Mutated only by the synchronizer, except for
	// edit-while-queued which replaces content fields via the queue store.
	Status         SyncStatus `json:"status"`
	RetryCount     int        `json:"retry_count"`
	LastRetryAt    int64      `json:"last_retry_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ServerMemoryID string     `json:"server_memory_id,omitempty"`
}

// EffectiveDate returns the timestamp used for feed ordering:
// the user-set memory date, else capture time, else record creation time.
func (m *QueuedMemory) EffectiveDate() int64 {
	if m.MemoryDate > 0 {
		return m.MemoryDate
	}
	if m.CapturedAt > 0 {
		return m.CapturedAt
	}
	return m.CreatedAt
}

// CapturedAtTime returns CapturedAt as time.Time.
func (m *QueuedMemory) CapturedAtTime() time.Time {
	return time.Unix(m.CapturedAt, 0)
}
