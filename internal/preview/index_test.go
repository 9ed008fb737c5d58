package preview

import (
	"testing"

	"github.com/keepsakehq/keepsake/core/internal/kvstore"
	"github.com/keepsakehq/keepsake/core/internal/models"
)

func newTestIndex() (*Index, *kvstore.MemoryStore) {
	kv := kvstore.NewMemory()
	return NewIndex(kv, ""), kv
}

func pv(serverID string, mt models.MemoryType, capturedAt int64) models.MemoryPreview {
	return models.MemoryPreview{
		ServerID:         serverID,
		MemoryType:       mt,
		TitleOrFirstLine: "title " + serverID,
		CapturedAt:       capturedAt,
	}
}

// TestUpsertMergesByServerID tests that re-upserting a server id replaces the
// row instead of duplicating it.
func TestUpsertMergesByServerID(t *testing.T) {
	ix, _ := newTestIndex()

	if err := ix.Upsert([]models.MemoryPreview{pv("s1", models.MemoryTypeMoment, 100)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	updated := pv("s1", models.MemoryTypeMoment, 100)
	updated.TitleOrFirstLine = "fresher title"
	if err := ix.Upsert([]models.MemoryPreview{updated, pv("s2", models.MemoryTypeStory, 200)}); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	if ix.Count() != 2 {
		t.Errorf("Expected 2 rows, got %d", ix.Count())
	}

	got := ix.Fetch(nil, 0)
	for _, p := range got {
		if p.ServerID == "s1" && p.TitleOrFirstLine != "fresher title" {
			t.Errorf("Expected replaced row, got %q", p.TitleOrFirstLine)
		}
	}
}

// TestFetchSortsAndTruncates tests descending capture-time order and limit.
func TestFetchSortsAndTruncates(t *testing.T) {
	ix, _ := newTestIndex()

	err := ix.Upsert([]models.MemoryPreview{
		pv("old", models.MemoryTypeMoment, 100),
		pv("newest", models.MemoryTypeMoment, 300),
		pv("mid", models.MemoryTypeMoment, 200),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got := ix.Fetch(nil, 2)
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].ServerID != "newest" || got[1].ServerID != "mid" {
		t.Errorf("Expected [newest mid], got [%s %s]", got[0].ServerID, got[1].ServerID)
	}
}

// TestFetchTypeFilter tests the memory-type filter set.
func TestFetchTypeFilter(t *testing.T) {
	ix, _ := newTestIndex()

	err := ix.Upsert([]models.MemoryPreview{
		pv("m1", models.MemoryTypeMoment, 100),
		pv("st1", models.MemoryTypeStory, 200),
		pv("me1", models.MemoryTypeMemento, 300),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got := ix.Fetch(map[models.MemoryType]bool{models.MemoryTypeStory: true}, 0)
	if len(got) != 1 || got[0].ServerID != "st1" {
		t.Errorf("Expected only the story, got %v", got)
	}

	// Empty filter set means all types.
	if got := ix.Fetch(nil, 0); len(got) != 3 {
		t.Errorf("Expected all rows without filter, got %d", len(got))
	}
}

// TestRemoveByServerID tests targeted deletion.
func TestRemoveByServerID(t *testing.T) {
	ix, _ := newTestIndex()

	err := ix.Upsert([]models.MemoryPreview{
		pv("keep", models.MemoryTypeMoment, 100),
		pv("drop", models.MemoryTypeMoment, 200),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := ix.RemoveByServerID("drop"); err != nil {
		t.Fatalf("RemoveByServerID failed: %v", err)
	}

	got := ix.Fetch(nil, 0)
	if len(got) != 1 || got[0].ServerID != "keep" {
		t.Errorf("Expected only the kept row, got %v", got)
	}
}

// TestClear tests wholesale reset.
func TestClear(t *testing.T) {
	ix, _ := newTestIndex()

	if err := ix.Upsert([]models.MemoryPreview{pv("s1", models.MemoryTypeMoment, 100)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := ix.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if ix.Count() != 0 {
		t.Errorf("Expected empty index after clear, got %d", ix.Count())
	}
}

// TestCorruptBlobReadsEmpty tests the fail-open policy.
func TestCorruptBlobReadsEmpty(t *testing.T) {
	ix, kv := newTestIndex()

	kv.Put(kvstore.KeyPreviewIndex, "][ garbage")

	if got := ix.Fetch(nil, 0); len(got) != 0 {
		t.Errorf("Expected empty fetch from corrupt blob, got %d", len(got))
	}

	if err := ix.Upsert([]models.MemoryPreview{pv("s1", models.MemoryTypeMoment, 100)}); err != nil {
		t.Fatalf("Upsert over corrupt blob failed: %v", err)
	}
	if ix.Count() != 1 {
		t.Errorf("Expected rebuilt index, got %d rows", ix.Count())
	}
}
