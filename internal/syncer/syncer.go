// Package syncer drains the durable memory queue through the remote save
// gateway whenever connectivity is available.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/keepsakehq/keepsake/core/internal/connectivity"
	"github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/gateway"
	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/models"
	"github.com/keepsakehq/keepsake/core/internal/queue"
)

// DefaultInterval is the cadence of the opportunistic auto-sync timer.
const DefaultInterval = 30 * time.Second

// MaxRetries caps automatic attempts per record before it parks as failed.
// A failed record stays eligible for later passes indefinitely.
const MaxRetries = 3

// CompletionEvent notifies observers that a queued capture reached the server.
type CompletionEvent struct {
	LocalID    string            `json:"local_id"`
	ServerID   string            `json:"server_id"`
	MemoryType models.MemoryType `json:"memory_type"`
}

// Config holds synchronizer tuning.
type Config struct {
	Interval   time.Duration // auto-sync timer cadence; defaults to DefaultInterval
	MaxRetries int           // defaults to MaxRetries
}

// Syncer orchestrates batch and single-record sync passes.
type Syncer struct {
	store      *queue.Store
	gw         gateway.SaveGateway
	oracle     connectivity.Oracle
	interval   time.Duration
	maxRetries int
	now        func() time.Time

	mu      sync.Mutex
	syncing bool
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	cmu         sync.Mutex
	nextID      int
	completions map[int]func(CompletionEvent)
}

// New creates a Syncer.
func New(store *queue.Store, gw gateway.SaveGateway, oracle connectivity.Oracle, config Config) *Syncer {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	return &Syncer{
		store:       store,
		gw:          gw,
		oracle:      oracle,
		interval:    interval,
		maxRetries:  maxRetries,
		now:         time.Now,
		completions: make(map[int]func(CompletionEvent)),
	}
}

// OnCompletion registers a sync-completion observer and returns an
// unsubscribe func.
func (s *Syncer) OnCompletion(fn func(CompletionEvent)) func() {
	s.cmu.Lock()
	defer s.cmu.Unlock()

	id := s.nextID
	s.nextID++
	s.completions[id] = fn

	return func() {
		s.cmu.Lock()
		defer s.cmu.Unlock()
		delete(s.completions, id)
	}
}

func (s *Syncer) emitCompletion(ev CompletionEvent) {
	s.cmu.Lock()
	fns := make([]func(CompletionEvent), 0, len(s.completions))
	for _, fn := range s.completions {
		fns = append(fns, fn)
	}
	s.cmu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// StartAutoSync subscribes to connectivity transitions (a sync pass fires on
// every offline-to-online edge) and arms the opportunistic interval timer.
// Calling it while already running is a no-op.
func (s *Syncer) StartAutoSync(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	transitions, unsubscribe := s.oracle.Subscribe()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsubscribe()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case online, ok := <-transitions:
				if !ok {
					return
				}
				if online {
					logging.Info("Connectivity restored, draining queue", nil)
					s.SyncAll(ctx)
				}
			case <-ticker.C:
				if s.oracle.IsOnline(ctx) {
					s.SyncAll(ctx)
				}
			}
		}
	}()

	logging.Info("Auto-sync started", map[string]interface{}{
		"interval_seconds": s.interval.Seconds(),
	})
}

// StopAutoSync tears down the timer and the connectivity subscription. An
// in-flight pass is not interrupted, only prevented from being triggered
// again.
func (s *Syncer) StopAutoSync() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info("Auto-sync stopped", nil)
}

// IsSyncing reports whether a batch pass is currently in flight.
func (s *Syncer) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// SyncAll runs one batch pass: every queued record, then every failed record,
// strictly in that order and sequentially. Offline is a no-op, as is firing
// while another pass is in flight. One record's failure never aborts the
// pass; per-record outcomes land in the queue store's bookkeeping fields.
func (s *Syncer) SyncAll(ctx context.Context) error {
	if !s.oracle.IsOnline(ctx) {
		return nil
	}

	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return nil
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	// Queued items always get priority over previously-failed ones.
	work := s.store.ByStatus(models.SyncStatusQueued)
	work = append(work, s.store.ByStatus(models.SyncStatusFailed)...)
	if len(work) == 0 {
		return nil
	}

	logging.Info("Starting sync pass", map[string]interface{}{"count": len(work)})

	synced, failed := 0, 0
	for _, rec := range work {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Re-read: the record may have been edited or removed since the work
		// list was built.
		current := s.store.GetByLocalID(rec.LocalID)
		if current == nil {
			continue
		}

		if err := s.syncRecord(ctx, *current); err != nil {
			failed++
		} else {
			synced++
		}
	}

	logging.Info("Sync pass finished", map[string]interface{}{
		"synced": synced,
		"failed": failed,
	})
	return nil
}

// SyncOne syncs a single record on explicit user request. Unlike the batch
// pass it raises: offline returns the offline failure before any gateway
// call, and a gateway failure is returned to the caller after the queue
// bookkeeping is updated.
func (s *Syncer) SyncOne(ctx context.Context, localID string) error {
	if !s.oracle.IsOnline(ctx) {
		return gateway.NewSaveError(gateway.FailureOffline, "device is offline", nil)
	}

	rec := s.store.GetByLocalID(localID)
	if rec == nil {
		return errors.New(errors.ErrQueueItemNotFound, "queued memory not found: "+localID)
	}

	return s.syncRecord(ctx, *rec)
}

// syncRecord runs the per-record state machine:
// queued/failed -> syncing -> completed (then removed) | queued/failed.
func (s *Syncer) syncRecord(ctx context.Context, rec models.QueuedMemory) error {
	now := s.now().Unix()

	rec.Status = models.SyncStatusSyncing
	rec.LastRetryAt = now
	if err := s.store.Update(rec); err != nil {
		return err
	}

	result, err := s.gw.Create(ctx, gateway.UploadFromQueued(&rec))
	if err != nil {
		// Failed records re-enter every pass; the count saturates at the cap
		// instead of growing without bound.
		if rec.RetryCount < s.maxRetries {
			rec.RetryCount++
		}
		rec.ErrorMessage = err.Error()
		rec.LastRetryAt = s.now().Unix()
		if rec.RetryCount >= s.maxRetries {
			rec.Status = models.SyncStatusFailed
		} else {
			rec.Status = models.SyncStatusQueued
		}

		if updateErr := s.store.Update(rec); updateErr != nil {
			logging.Error("Failed to persist sync failure", updateErr,
				map[string]interface{}{"local_id": rec.LocalID})
		}

		logging.ErrorWithCode("Memory sync attempt failed", string(errors.ErrSyncFailed), err,
			map[string]interface{}{
				"local_id":    rec.LocalID,
				"retry_count": rec.RetryCount,
				"status":      string(rec.Status),
			})
		return err
	}

	// serverMemoryId is set exactly once, immediately before removal.
	rec.Status = models.SyncStatusCompleted
	rec.ServerMemoryID = result.MemoryID
	rec.ErrorMessage = ""
	if err := s.store.Update(rec); err != nil {
		return err
	}

	s.emitCompletion(CompletionEvent{
		LocalID:    rec.LocalID,
		ServerID:   result.MemoryID,
		MemoryType: rec.MemoryType,
	})

	if err := s.store.Remove(rec.LocalID); err != nil {
		// Completion already reached the server; a removal race is benign.
		if !errors.Is(err, errors.ErrQueueItemNotFound) {
			return err
		}
	}

	logging.Info("Memory synced", map[string]interface{}{
		"local_id":  rec.LocalID,
		"server_id": result.MemoryID,
	})
	return nil
}
