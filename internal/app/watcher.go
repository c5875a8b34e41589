package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/myskoda/internal/config"
	"github.com/samvad-hq/myskoda/internal/logger"
	"github.com/samvad-hq/myskoda/internal/metrics"
	"github.com/samvad-hq/myskoda/internal/poller"
	"github.com/samvad-hq/myskoda/internal/storage"
	"github.com/samvad-hq/myskoda/pkg/publishers"
	"github.com/samvad-hq/myskoda/pkg/vehicles"
)

// Watcher is the range watcher runtime. It polls every enabled vehicle on a
// fixed interval and fans changed readings out to the configured publishers.
type Watcher struct {
	cfg          *config.Config
	vehicles     []vehicles.Vehicle
	fanout       *publishers.Fanout
	pollService  *poller.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
	metrics      *metrics.Metrics
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	vehicleReg, err := vehicles.LoadRegistry(cfg.VehiclesFile)
	if err != nil {
		return nil, fmt.Errorf("load vehicles registry: %w", err)
	}
	enabledVehicles := vehicleReg.Enabled()
	vins := make([]string, 0, len(enabledVehicles))
	for _, v := range enabledVehicles {
		vins = append(vins, v.VIN)
	}
	log.InfoObj("vehicles registry loaded", "vehicles_meta", map[string]any{
		"count": len(vins),
		"vins":  vins,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.DefaultBuilders().BuildAll(ctx, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := OpenStore(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"snapshot_ttl_seconds":     int(cfg.SnapshotTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	client, err := NewClient(cfg, store, log)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, err
	}

	m := metrics.New()
	return &Watcher{
		cfg:          cfg,
		vehicles:     enabledVehicles,
		fanout:       fanout,
		pollService:  poller.NewService(client, fanout, store, m, log),
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
		metrics:      m,
	}, nil
}

// Run starts the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.pollService == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	if len(w.vehicles) == 0 {
		w.log.WarnObj("no vehicles enabled; watcher idle", "vehicles_file", w.cfg.VehiclesFile)
		<-ctx.Done()
		return nil
	}

	if w.cfg.MetricsAddr != "" {
		srv := w.serveMetrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"vehicles_count":   len(w.vehicles),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.pollInterval.String(),
	})

	w.runOnce(ctx, "initial")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			w.runOnce(ctx, "scheduled")
		}
	}
}

// runOnce performs a single poll over all vehicles.
func (w *Watcher) runOnce(ctx context.Context, kind string) {
	start := time.Now()
	if err := w.pollService.Run(ctx, w.vehicles); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.log.ErrorObj(kind+" poll failed", "error", err)
		return
	}
	w.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"vehicles_count": len(w.vehicles),
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
}

func (w *Watcher) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.metrics.Handler())
	srv := &http.Server{
		Addr:              w.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.ErrorObj("metrics server failed", "error", err)
		}
	}()
	return srv
}

// close releases publishers and storage, logging any errors encountered.
func (w *Watcher) close() {
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publishers close failed", "error", err)
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
