package providers

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"

	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/metrics"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/store/backend"
)

// MetricsHandle holds the recorder used across the server and, when metrics
// are enabled, the handler serving them.
type MetricsHandle struct {
	Recorder metrics.Recorder
	Handler  http.Handler
}

// ProvideMetrics provides the Prometheus collector on a dedicated registry.
func ProvideMetrics(i do.Injector) (*MetricsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if !cfg.Metrics.Enabled {
		return &MetricsHandle{Recorder: metrics.Nop{}}, nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsHandle{
		Recorder: metrics.NewCollector(registry),
		Handler:  metrics.Handler(registry),
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured backend and instruments it.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handle := do.MustInvoke[*MetricsHandle](i)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	db, err := backend.Open(ctx, cfg.Database, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "driver", cfg.Database.Driver)

	return &StoreHandle{Store: metrics.InstrumentStore(db, handle.Recorder)}, nil
}
