// Package connectivity reports online/offline state and transition streams.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/keepsakehq/keepsake/core/internal/logging"
)

// Oracle reports the device's connectivity state.
type Oracle interface {
	// IsOnline is a point-in-time check.
	IsOnline(ctx context.Context) bool

	// Subscribe returns a channel of online/offline transitions and a cancel
	// func. Only state changes are delivered, not repeats.
	Subscribe() (<-chan bool, func())
}

// ManualOracle is an Oracle whose state is set by the caller. On mobile the
// platform's reachability callback drives it; tests drive it directly.
type ManualOracle struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
}

// NewManual creates a ManualOracle with the given initial state.
func NewManual(online bool) *ManualOracle {
	return &ManualOracle{
		online: online,
		subs:   make(map[int]chan bool),
	}
}

// IsOnline returns the current state.
func (o *ManualOracle) IsOnline(_ context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// SetOnline updates the state and fans the transition out to subscribers.
// Setting the same state twice delivers nothing.
func (o *ManualOracle) SetOnline(online bool) {
	o.mu.Lock()
	if o.online == online {
		o.mu.Unlock()
		return
	}
	o.online = online
	subs := make([]chan bool, 0, len(o.subs))
	for _, ch := range o.subs {
		subs = append(subs, ch)
	}
	o.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// Subscriber is not draining; drop rather than block.
		}
	}
}

// Subscribe registers a transition channel.
func (o *ManualOracle) Subscribe() (<-chan bool, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	ch := make(chan bool, 8)
	o.subs[id] = ch

	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(ch)
		}
	}
}

// ProbeOracle determines connectivity by periodically probing an HTTP
// endpoint. Used by the desktop server, where no platform reachability
// callback exists.
type ProbeOracle struct {
	*ManualOracle

	probeURL string
	interval time.Duration
	client   *http.Client
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProbe creates a ProbeOracle that HEAD-requests probeURL every interval.
// The oracle starts offline until the first successful probe.
func NewProbe(probeURL string, interval time.Duration) *ProbeOracle {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProbeOracle{
		ManualOracle: NewManual(false),
		probeURL:     probeURL,
		interval:     interval,
		client:       &http.Client{Timeout: 5 * time.Second},
		stopCh:       make(chan struct{}),
	}
}

// Start begins background probing. Returns immediately.
func (o *ProbeOracle) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		o.probe(ctx)

		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stopCh:
				return
			case <-ticker.C:
				o.probe(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the prober to exit.
func (o *ProbeOracle) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}

func (o *ProbeOracle) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, o.probeURL, nil)
	if err != nil {
		o.SetOnline(false)
		return
	}

	resp, err := o.client.Do(req)
	if err != nil {
		logging.Debug("Connectivity probe failed", map[string]interface{}{"url": o.probeURL})
		o.SetOnline(false)
		return
	}
	resp.Body.Close()

	o.SetOnline(resp.StatusCode < 500)
}
