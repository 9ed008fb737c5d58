package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestManualOracleState tests the point-in-time check.
func TestManualOracleState(t *testing.T) {
	o := NewManual(false)

	if o.IsOnline(context.Background()) {
		t.Error("Expected offline initially")
	}

	o.SetOnline(true)
	if !o.IsOnline(context.Background()) {
		t.Error("Expected online after SetOnline(true)")
	}
}

// TestManualOracleTransitions tests that only state changes are delivered.
func TestManualOracleTransitions(t *testing.T) {
	o := NewManual(false)

	ch, cancel := o.Subscribe()
	defer cancel()

	o.SetOnline(true)
	o.SetOnline(true) // repeat, must not deliver
	o.SetOnline(false)

	var got []bool
	for len(got) < 2 {
		select {
		case v := <-ch:
			got = append(got, v)
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for transitions, got %v", got)
		}
	}

	if !got[0] || got[1] {
		t.Errorf("Expected [true false], got %v", got)
	}

	select {
	case v := <-ch:
		t.Errorf("Expected no further transitions, got %v", v)
	default:
	}
}

// TestManualOracleUnsubscribe tests channel cleanup.
func TestManualOracleUnsubscribe(t *testing.T) {
	o := NewManual(false)

	ch, cancel := o.Subscribe()
	cancel()
	cancel() // second cancel must be safe

	if _, open := <-ch; open {
		t.Error("Expected channel closed after unsubscribe")
	}

	// Transition after unsubscribe must not panic.
	o.SetOnline(true)
}

// TestProbeOracle tests probing against a live test server.
func TestProbeOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := NewProbe(srv.URL, 10*time.Millisecond)

	ch, cancel := o.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	o.Start(ctx)
	defer o.Stop()

	select {
	case online := <-ch:
		if !online {
			t.Error("Expected online transition from successful probe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for probe transition")
	}
}

// TestProbeOracleUnreachable tests that a dead endpoint keeps the oracle offline.
func TestProbeOracleUnreachable(t *testing.T) {
	// Reserved TEST-NET-1 address; connection will fail fast or time out.
	o := NewProbe("http://192.0.2.1:9", 10*time.Millisecond)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	o.Start(ctx)
	defer o.Stop()

	time.Sleep(50 * time.Millisecond)
	if o.IsOnline(context.Background()) {
		t.Error("Expected offline against unreachable endpoint")
	}
}
