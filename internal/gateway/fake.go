package gateway

import (
	"context"
	"sync"

	"github.com/keepsakehq/keepsake/core/internal/uuid"
)

// FakeGateway is a scriptable SaveGateway for tests. Each call consumes the
// next scripted outcome; when the script runs dry, calls succeed with a fresh
// server id.
type FakeGateway struct {
	mu      sync.Mutex
	script  []error
	Creates []CaptureUpload
	Updates []string
}

// NewFake creates an unscripted FakeGateway (every call succeeds).
func NewFake() *FakeGateway {
	return &FakeGateway{}
}

// FailWith appends scripted failures, consumed in order by subsequent calls.
// A nil entry scripts a success.
func (g *FakeGateway) FailWith(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.script = append(g.script, errs...)
}

func (g *FakeGateway) next() error {
	if len(g.script) == 0 {
		return nil
	}
	err := g.script[0]
	g.script = g.script[1:]
	return err
}

// Create records the upload and returns the next scripted outcome.
func (g *FakeGateway) Create(_ context.Context, upload CaptureUpload) (*SaveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Creates = append(g.Creates, upload)
	if err := g.next(); err != nil {
		return nil, err
	}
	return &SaveResult{
		MemoryID:    uuid.New(),
		HasLocation: upload.Latitude != 0 || upload.Longitude != 0,
	}, nil
}

// Update records the call and returns the next scripted outcome.
func (g *FakeGateway) Update(_ context.Context, memoryID string, upload CaptureUpload) (*SaveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Updates = append(g.Updates, memoryID)
	if err := g.next(); err != nil {
		return nil, err
	}
	return &SaveResult{MemoryID: memoryID}, nil
}

// CreateCount returns how many Create calls were made.
func (g *FakeGateway) CreateCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Creates)
}
