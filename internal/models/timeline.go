// Package models provides data model definitions for Keepsake Core.
package models

// TimelineMemory is the unified feed item produced by the feed merger. It is a
// read-model derived fresh per fetch; provenance flags let the UI disambiguate
// which source produced the item.
type TimelineMemory struct {
	LocalID  string     `json:"local_id,omitempty"`
	ServerID string     `json:"server_id,omitempty"`

	MemoryType MemoryType `json:"memory_type"`
	Title      string     `json:"title,omitempty"`
	InputText  string     `json:"input_text,omitempty"`
	Tags       []string   `json:"tags,omitempty"`

	PhotoURLs        []string `json:"photo_urls,omitempty"`
	VideoURLs        []string `json:"video_urls,omitempty"`
	AudioURL         string   `json:"audio_url,omitempty"`
	PhotoPaths       []string `json:"photo_paths,omitempty"`
	PhotoPosterPaths []string `json:"photo_poster_paths,omitempty"`
	VideoPaths       []string `json:"video_paths,omitempty"`
	VideoPosterPaths []string `json:"video_poster_paths,omitempty"`
	AudioPath        string   `json:"audio_path,omitempty"`

	EffectiveDate int64 `json:"effective_date"`
	CapturedAt    int64 `json:"captured_at"`

	// Provenance.
	IsOfflineQueued       bool       `json:"is_offline_queued"`
	IsPreviewOnly         bool       `json:"is_preview_only"`
	IsDetailCachedLocally bool       `json:"is_detail_cached_locally"`
	OfflineSyncStatus     SyncStatus `json:"offline_sync_status,omitempty"`
}

// TimelineFromQueued maps a queued capture onto the timeline shape.
func TimelineFromQueued(q *QueuedMemory) TimelineMemory {
	return TimelineMemory{
		LocalID:           q.LocalID,
		ServerID:          q.ServerMemoryID,
		MemoryType:        q.MemoryType,
		Title:             q.Title,
		InputText:         q.InputText,
		Tags:              q.Tags,
		PhotoPaths:        q.PhotoPaths,
		PhotoPosterPaths:  q.PhotoPosterPaths,
		VideoPaths:        q.VideoPaths,
		VideoPosterPaths:  q.VideoPosterPaths,
		AudioPath:         q.AudioPath,
		EffectiveDate:     q.EffectiveDate(),
		CapturedAt:        q.CapturedAt,
		IsOfflineQueued:   true,
		OfflineSyncStatus: q.Status,
	}
}

// TimelineFromRemote maps a remote feed item onto the timeline shape.
func TimelineFromRemote(r *RemoteMemory) TimelineMemory {
	return TimelineMemory{
		ServerID:      r.ID,
		MemoryType:    r.MemoryType,
		Title:         r.Title,
		InputText:     r.InputText,
		Tags:          r.Tags,
		PhotoURLs:     r.PhotoURLs,
		VideoURLs:     r.VideoURLs,
		AudioURL:      r.AudioURL,
		EffectiveDate: r.EffectiveDate(),
		CapturedAt:    r.CapturedAt,
	}
}

// TimelineFromPreview maps a preview-index row onto the timeline shape.
func TimelineFromPreview(p *MemoryPreview) TimelineMemory {
	return TimelineMemory{
		ServerID:              p.ServerID,
		MemoryType:            p.MemoryType,
		Title:                 p.TitleOrFirstLine,
		EffectiveDate:         p.CapturedAt,
		CapturedAt:            p.CapturedAt,
		IsPreviewOnly:         !p.IsDetailCachedLocally,
		IsDetailCachedLocally: p.IsDetailCachedLocally,
	}
}
