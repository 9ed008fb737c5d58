// Package main runs the Keepsake desktop companion server. Desktop clients
// talk REST on localhost and receive queue and sync events over WebSocket.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keepsakehq/keepsake/core/cmd/desktop/handlers"
	"github.com/keepsakehq/keepsake/core/internal/config"
	"github.com/keepsakehq/keepsake/core/internal/connectivity"
	"github.com/keepsakehq/keepsake/core/internal/feed"
	"github.com/keepsakehq/keepsake/core/internal/gateway"
	"github.com/keepsakehq/keepsake/core/internal/kvstore"
	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/preview"
	"github.com/keepsakehq/keepsake/core/internal/queue"
	"github.com/keepsakehq/keepsake/core/internal/syncer"
)

func main() {
	cfg, err := config.Load(os.Getenv("KEEPSAKE_CONFIG"))
	if err != nil {
		logging.Error("Invalid configuration", err, nil)
		os.Exit(1)
	}
	logging.Init(os.Stderr, logging.ParseLevel(cfg.Logging.Level))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logging.Error("Failed to create data directory", err, map[string]interface{}{
			"data_dir": cfg.DataDir,
		})
		os.Exit(1)
	}

	kv, err := kvstore.OpenSQLite(cfg.DataDir)
	if err != nil {
		logging.Error("Failed to open local store", err, nil)
		os.Exit(1)
	}
	defer kv.Close()

	store := queue.NewStore(kv, kvstore.KeyMemoryQueue)
	index := preview.NewIndex(kv, kvstore.KeyPreviewIndex)

	oracle, stopOracle := buildOracle(cfg)
	defer stopOracle()

	gw := gateway.NewHTTP(gateway.HTTPConfig{
		BaseURL:   cfg.Gateway.Endpoint,
		AuthToken: cfg.Gateway.AuthToken,
		Timeout:   cfg.Gateway.Timeout,
	})
	remote := feed.NewHTTPRemote(feed.HTTPRemoteConfig{
		BaseURL:   cfg.Gateway.Endpoint,
		AuthToken: cfg.Gateway.AuthToken,
		Timeout:   cfg.Gateway.Timeout,
	})

	s := syncer.New(store, gw, oracle, syncer.Config{
		Interval:   cfg.Sync.Interval,
		MaxRetries: cfg.Sync.MaxRetries,
	})
	merger := feed.NewMerger(store, index, remote)

	hub := NewWSHub()
	unsubQueue := store.Subscribe(hub.BroadcastQueueChange)
	defer unsubQueue()
	unsubDone := s.OnCompletion(hub.BroadcastSyncItemCompleted)
	defer unsubDone()

	edgeCh, unsubEdge := oracle.Subscribe()
	defer unsubEdge()
	go func() {
		for online := range edgeCh {
			hub.BroadcastConnectivityChanged(online)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartAutoSync(ctx)
	defer s.StopAutoSync()

	captureH := handlers.NewCaptureHandler(store, cfg.Media.PosterDir, cfg.Media.PosterMaxEdge)
	syncH := handlers.NewSyncHandler(store, s, oracle, hub)
	feedH := handlers.NewFeedHandler(merger, index, oracle)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/captures", captureH.Create)
	mux.HandleFunc("GET /api/captures", captureH.List)
	mux.HandleFunc("DELETE /api/captures", captureH.Clear)
	mux.HandleFunc("GET /api/captures/status", captureH.Status)
	mux.HandleFunc("GET /api/captures/{localId}", captureH.Get)
	mux.HandleFunc("PATCH /api/captures/{localId}", captureH.Update)
	mux.HandleFunc("DELETE /api/captures/{localId}", captureH.Delete)
	mux.HandleFunc("POST /api/sync/now", syncH.TriggerAll)
	mux.HandleFunc("POST /api/sync/captures/{localId}", syncH.TriggerOne)
	mux.HandleFunc("GET /api/sync/status", syncH.Status)
	mux.HandleFunc("GET /api/feed", feedH.Page)
	mux.HandleFunc("DELETE /api/previews", feedH.ClearPreviews)
	mux.Handle("GET /ws", HandleWebSocket(hub))
	mux.HandleFunc("GET /api/health", healthHandler(hub))

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		logging.Info("Keepsake desktop server listening", map[string]interface{}{
			"addr": cfg.Server.ListenAddr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("HTTP server failed", err, nil)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logging.Info("Shutting down", nil)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}

// buildOracle selects the connectivity source. With a probe URL (or gateway
// endpoint as fallback) the oracle actively probes; without either the server
// has no reachable backend and stays offline.
func buildOracle(cfg *config.Config) (connectivity.Oracle, func()) {
	probeURL := cfg.Connectivity.ProbeURL
	if probeURL == "" && cfg.Gateway.Endpoint != "" {
		probeURL = cfg.Gateway.Endpoint + "/api/health"
	}
	if probeURL == "" {
		return connectivity.NewManual(false), func() {}
	}

	probe := connectivity.NewProbe(probeURL, cfg.Connectivity.ProbeInterval)
	probe.Start(context.Background())
	return probe, probe.Stop
}

func healthHandler(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"keepsake-desktop","ws_clients":%d}`, hub.ClientCount())
	}
}
