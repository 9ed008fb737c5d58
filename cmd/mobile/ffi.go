// Package main provides the FFI bridge for mobile platforms.
// Build as shared library: libkeepsake.so (Android) / keepsake.framework (iOS).
// All exports speak JSON over C strings; every returned *C.char must be freed
// by the caller via FreeString.
package main

/*
#cgo CFLAGS: -Wall -Wextra
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/keepsakehq/keepsake/core/internal/connectivity"
	apperrors "github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/feed"
	"github.com/keepsakehq/keepsake/core/internal/gateway"
	"github.com/keepsakehq/keepsake/core/internal/kvstore"
	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/media"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/preview"
	"github.com/keepsakehq/keepsake/core/internal/queue"
	"github.com/keepsakehq/keepsake/core/internal/syncer"
	"github.com/keepsakehq/keepsake/core/internal/uuid"
)

type bridge struct {
	kv     kvstore.Store
	store  *queue.Store
	index  *preview.Index
	oracle *connectivity.ManualOracle
	syncer *syncer.Syncer
	merger *feed.Merger

	posterDir string
	cancel    context.CancelFunc
}

var (
	once    sync.Once
	core    *bridge
	lastErr string
	lastMu  sync.RWMutex
)

func setLastError(err string) {
	lastMu.Lock()
	defer lastMu.Unlock()
	lastErr = err
}

//export Init
// Init initializes the Keepsake core. dataDir holds the local SQLite store,
// gatewayURL and authToken point at the remote backend. Returns 0 on success.
// The oracle starts offline; the platform reports reachability via SetOnline.
func Init(dataDir, gatewayURL, authToken *C.char) int32 {
	ok := int32(1)
	once.Do(func() {
		dir := C.GoString(dataDir)
		if dir == "" {
			dir = "./data"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			setLastError(fmt.Sprintf("failed to create data directory: %v", err))
			return
		}
		logging.Init(os.Stderr, logging.LevelInfo)

		kv, err := kvstore.OpenSQLite(dir)
		if err != nil {
			setLastError(fmt.Sprintf("failed to open local store: %v", err))
			return
		}

		store := queue.NewStore(kv, kvstore.KeyMemoryQueue)
		index := preview.NewIndex(kv, kvstore.KeyPreviewIndex)
		oracle := connectivity.NewManual(false)
		gw := gateway.NewHTTP(gateway.HTTPConfig{
			BaseURL:   C.GoString(gatewayURL),
			AuthToken: C.GoString(authToken),
		})
		remote := feed.NewHTTPRemote(feed.HTTPRemoteConfig{
			BaseURL:   C.GoString(gatewayURL),
			AuthToken: C.GoString(authToken),
		})
		s := syncer.New(store, gw, oracle, syncer.Config{})

		ctx, cancel := context.WithCancel(context.Background())
		s.StartAutoSync(ctx)

		core = &bridge{
			kv:        kv,
			store:     store,
			index:     index,
			oracle:    oracle,
			syncer:    s,
			merger:    feed.NewMerger(store, index, remote),
			posterDir: filepath.Join(dir, "posters"),
			cancel:    cancel,
		}
		ok = 0
	})
	if core != nil {
		return 0
	}
	return ok
}

//export Cleanup
// Cleanup stops background sync and closes the local store.
func Cleanup() {
	if core == nil {
		return
	}
	core.syncer.StopAutoSync()
	core.cancel()
	core.kv.Close()
}

//export GetLastError
// GetLastError returns the last error message as a C string.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()
	return C.CString(lastErr)
}

//export SetOnline
// SetOnline feeds the platform's reachability signal into the oracle.
// An offline-to-online edge triggers a sync pass.
func SetOnline(online int32) {
	if core == nil {
		return
	}
	core.oracle.SetOnline(online != 0)
}

//export EnqueueCapture
// EnqueueCapture persists a capture locally and queues it for sync. captureJSON
// carries the capture fields; the returned JSON is the stored record with its
// generated local id.
func EnqueueCapture(captureJSON *C.char) *C.char {
	if core == nil {
		setLastError("core not initialized")
		return nil
	}

	var record models.QueuedMemory
	if err := json.Unmarshal([]byte(C.GoString(captureJSON)), &record); err != nil {
		setLastError(fmt.Sprintf("invalid capture payload: %v", err))
		return nil
	}
	if !record.MemoryType.IsValid() {
		setLastError("memory_type must be one of moment, story, memento")
		return nil
	}

	now := time.Now().Unix()
	record.LocalID = uuid.New()
	if record.CapturedAt == 0 {
		record.CapturedAt = now
	}
	record.CreatedAt = now
	record.Status = models.SyncStatusQueued
	record.RetryCount = 0
	record.ErrorMessage = ""
	record.ServerMemoryID = ""

	if len(record.PhotoPaths) > 0 {
		media.PhotoPosters(&record, core.posterDir, media.DefaultMaxEdge)
	}

	if err := core.store.Enqueue(record); err != nil {
		setLastError(fmt.Sprintf("failed to enqueue capture: %v", err))
		return nil
	}
	return marshalC(record)
}

//export UpdateCapture
// UpdateCapture replaces the content of a still-queued capture. The payload
// must carry local_id; sync bookkeeping is preserved.
func UpdateCapture(captureJSON *C.char) *C.char {
	if core == nil {
		setLastError("core not initialized")
		return nil
	}

	var req models.QueuedMemory
	if err := json.Unmarshal([]byte(C.GoString(captureJSON)), &req); err != nil {
		setLastError(fmt.Sprintf("invalid capture payload: %v", err))
		return nil
	}

	existing := core.store.GetByLocalID(req.LocalID)
	if existing == nil {
		setLastError("no queued capture with id " + req.LocalID)
		return nil
	}

	updated := *existing
	updated.MemoryType = req.MemoryType
	updated.InputText = req.InputText
	updated.Title = req.Title
	updated.Tags = req.Tags
	updated.MemoryDate = req.MemoryDate
	updated.PhotoPaths = req.PhotoPaths
	updated.VideoPaths = req.VideoPaths
	updated.AudioPath = req.AudioPath
	updated.AudioDuration = req.AudioDuration
	updated.Latitude = req.Latitude
	updated.Longitude = req.Longitude
	updated.LocationStatus = req.LocationStatus
	updated.Location = req.Location
	if !updated.MemoryType.IsValid() {
		updated.MemoryType = existing.MemoryType
	}

	if err := core.store.Update(updated); err != nil {
		setLastError(fmt.Sprintf("failed to update capture: %v", err))
		return nil
	}
	return marshalC(updated)
}

//export QueueList
// QueueList returns queued captures, optionally filtered by status.
func QueueList(status *C.char) *C.char {
	if core == nil {
		setLastError("core not initialized")
		return nil
	}

	var records []models.QueuedMemory
	if s := C.GoString(status); s != "" {
		records = core.store.ByStatus(models.SyncStatus(s))
	} else {
		records = core.store.All()
	}
	return marshalC(map[string]interface{}{
		"captures": records,
		"count":    len(records),
	})
}

//export QueueRemove
// QueueRemove deletes a queued capture. Returns 0 on success, 1 when the
// record does not exist.
func QueueRemove(localID *C.char) int32 {
	if core == nil {
		setLastError("core not initialized")
		return 1
	}
	if err := core.store.Remove(C.GoString(localID)); err != nil {
		setLastError(err.Error())
		return 1
	}
	return 0
}

//export SyncNow
// SyncNow runs one batch sync pass and returns the resulting queue counts.
// Offline the pass is a no-op.
func SyncNow() *C.char {
	if core == nil {
		setLastError("core not initialized")
		return nil
	}

	if err := core.syncer.SyncAll(context.Background()); err != nil {
		setLastError(err.Error())
		return nil
	}
	return marshalC(map[string]interface{}{
		"remaining": core.store.CountByStatus(models.SyncStatusQueued),
		"failed":    core.store.CountByStatus(models.SyncStatusFailed),
	})
}

//export SyncMemory
// SyncMemory syncs one capture immediately. Returns 0 on success; on failure
// the error, including the offline pre-check, is available via GetLastError.
func SyncMemory(localID *C.char) int32 {
	if core == nil {
		setLastError("core not initialized")
		return 1
	}
	if err := core.syncer.SyncOne(context.Background(), C.GoString(localID)); err != nil {
		setLastError(err.Error())
		return 1
	}
	return 0
}

//export FetchFeed
// FetchFeed returns one merged feed page. types is a comma-separated list,
// empty for all; cursor is the opaque token from the previous page.
func FetchFeed(cursor, types *C.char, limit int32) *C.char {
	if core == nil {
		setLastError("core not initialized")
		return nil
	}

	filters, err := parseTypes(C.GoString(types))
	if err != nil {
		setLastError(err.Error())
		return nil
	}
	batchSize := int(limit)
	if batchSize < 1 {
		batchSize = feed.DefaultBatchSize
	}

	ctx := context.Background()
	page, err := core.merger.FetchPage(ctx, feed.PageRequest{
		Cursor:    C.GoString(cursor),
		Filters:   filters,
		BatchSize: batchSize,
		Online:    core.oracle.IsOnline(ctx),
	})
	if err != nil {
		setLastError(err.Error())
		return nil
	}
	return marshalC(page)
}

//export ClearPreviews
// ClearPreviews empties the local preview cache. The offline queue is not
// touched. Returns 0 on success.
func ClearPreviews() int32 {
	if core == nil {
		setLastError("core not initialized")
		return 1
	}
	if err := core.index.Clear(); err != nil {
		setLastError(err.Error())
		return 1
	}
	return 0
}

//export ClearQueue
// ClearQueue wipes the whole capture queue, pending uploads included. Backs
// logout and local reset flows. Returns 0 on success.
func ClearQueue() int32 {
	if core == nil {
		setLastError("core not initialized")
		return 1
	}
	if err := core.store.Clear(); err != nil {
		setLastError(err.Error())
		return 1
	}
	return 0
}

//export QueueStatus
// QueueStatus returns per-state queue counts and the connectivity answer.
func QueueStatus() *C.char {
	if core == nil {
		setLastError("core not initialized")
		return nil
	}
	return marshalC(map[string]interface{}{
		"online":  core.oracle.IsOnline(context.Background()),
		"syncing": core.syncer.IsSyncing(),
		"total":   core.store.Count(),
		"queued":  core.store.CountByStatus(models.SyncStatusQueued),
		"failed":  core.store.CountByStatus(models.SyncStatusFailed),
	})
}

//export FreeString
// FreeString frees a string allocated by Go.
func FreeString(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

func marshalC(v interface{}) *C.char {
	data, err := json.Marshal(v)
	if err != nil {
		setLastError(fmt.Sprintf("failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

func parseTypes(raw string) (map[models.MemoryType]bool, error) {
	if raw == "" {
		return nil, nil
	}
	filters := make(map[models.MemoryType]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := models.MemoryType(part)
		if !t.IsValid() {
			return nil, apperrors.New(apperrors.ErrInvalid, "unknown memory type "+part)
		}
		filters[t] = true
	}
	return filters, nil
}

func main() {
	// Required for c-shared build mode; never executed when loaded as a
	// library.
}
