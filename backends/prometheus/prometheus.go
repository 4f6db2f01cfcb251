package prometheus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/netlink"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type PrometheusBackend struct {
	Config

	src     inventory.Source
	m       *metrics
	handler http.Handler
	server  *http.Server
}

func (b *PrometheusBackend) String() string {
	return "Prometheus"
}

func NewPrometheusBackend(c *Config, src inventory.Source) (*PrometheusBackend, error) {
	if c.Log {
		logger = slog.Default().With("t", "prometheus")
	} else {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	logger.Debug("initialising the prometheus backend")

	if src == nil {
		return nil, fmt.Errorf("no interface source provided")
	}

	b := PrometheusBackend{Config: *c, src: src, m: newMetrics()}

	if b.RefreshIntervalMs <= 0 {
		return nil, fmt.Errorf("invalid refresh interval: %d ms", b.RefreshIntervalMs)
	}

	// Create a non-global registry.
	reg := prometheus.NewRegistry()

	if err := b.m.register(reg); err != nil {
		return nil, fmt.Errorf("error registering the metrics: %v", err)
	}

	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	b.handler = handler

	b.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", b.BindAddress, b.Port),
		Handler: handler,
	}

	return &b, nil
}

// Init performs a first refresh so that the first scrape isn't empty. A
// failure is only logged: the periodic refresh will try again.
func (b *PrometheusBackend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), b.interval())
	defer cancel()

	if err := b.refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", "err", err)
	}

	return nil
}

func (b *PrometheusBackend) Run(done <-chan struct{}) {
	logger.Debug("running the prometheus backend", "addr", b.server.Addr)

	go func() {
		if err := b.server.ListenAndServe(); err != nil {
			logger.Info("stopped listening", "err", err)
		}
	}()

	ticker := time.NewTicker(b.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), b.interval())
			if err := b.refresh(ctx); err != nil {
				logger.Error("error refreshing the metrics", "err", err)
			}
			cancel()
		case <-done:
			logger.Debug("cleanly exiting the prometheus backend")
			return
		}
	}
}

func (b *PrometheusBackend) Cleanup() error {
	logger.Debug("cleaning up the prometheus backend")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return b.server.Shutdown(ctx)
}

func (b *PrometheusBackend) interval() time.Duration {
	return time.Duration(b.RefreshIntervalMs) * time.Millisecond
}

func (b *PrometheusBackend) refresh(ctx context.Context) error {
	b.m.Refreshes.Inc()

	start := time.Now()
	ifaces, err := b.src.Collect(ctx)
	b.m.RefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		b.m.RefreshErrors.WithLabelValues(errorOp(err)).Inc()
		return err
	}

	b.m.update(ifaces)
	b.m.LastRefresh.SetToCurrentTime()

	logger.Debug("refreshed the metrics", "interfaces", len(ifaces))
	return nil
}

// errorOp labels a failed refresh with the netlink step that broke it.
func errorOp(err error) string {
	var opErr *netlink.OpError
	if errors.As(err, &opErr) {
		return string(opErr.Op)
	}
	return "other"
}
