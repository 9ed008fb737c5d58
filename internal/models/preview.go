// Package models provides data model definitions for Keepsake Core.
package models

// MemoryPreview is a read-only cached summary of a remote, already-synced
// memory, used purely for offline display continuity. ServerID is the natural
// key; writes are upserts keyed on it.
type MemoryPreview struct {
	ServerID              string     `json:"server_id"`
	MemoryType            MemoryType `json:"memory_type"`
	TitleOrFirstLine      string     `json:"title_or_first_line"`
	CapturedAt            int64      `json:"captured_at"`
	IsDetailCachedLocally bool       `json:"is_detail_cached_locally"`
}

// RemoteMemory is one item of a remote feed page.
type RemoteMemory struct {
	ID          string     `json:"id"`
	MemoryType  MemoryType `json:"memory_type"`
	Title       string     `json:"title,omitempty"`
	InputText   string     `json:"input_text,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	PhotoURLs   []string   `json:"photo_urls,omitempty"`
	VideoURLs   []string   `json:"video_urls,omitempty"`
	AudioURL    string     `json:"audio_url,omitempty"`
	HasLocation bool       `json:"has_location"`
	CapturedAt  int64      `json:"captured_at"`
	MemoryDate  int64      `json:"memory_date,omitempty"`
	CreatedAt   int64      `json:"created_at"`
}

// EffectiveDate returns the feed-ordering timestamp for a remote memory.
func (m *RemoteMemory) EffectiveDate() int64 {
	if m.MemoryDate > 0 {
		return m.MemoryDate
	}
	if m.CapturedAt > 0 {
		return m.CapturedAt
	}
	return m.CreatedAt
}

// TitleOrFirstLine derives the preview display string for a remote memory.
func (m *RemoteMemory) TitleOrFirstLine() string {
	if m.Title != "" {
		return m.Title
	}
	const max = 80
	text := m.InputText
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			text = text[:i]
			break
		}
	}
	if len(text) > max {
		text = text[:max]
	}
	return text
}

// ToPreview converts a remote memory into its preview-index row.
func (m *RemoteMemory) ToPreview() MemoryPreview {
	return MemoryPreview{
		ServerID:         m.ID,
		MemoryType:       m.MemoryType,
		TitleOrFirstLine: m.TitleOrFirstLine(),
		CapturedAt:       m.EffectiveDate(),
	}
}
