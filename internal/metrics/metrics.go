// Package metrics exposes the gauges and counters the domain stack
// calls out for every binary: bank utilization, paquet concurrency,
// queue depth, and APNs retry counts. Grounded on the teacher's
// pkg/metrics/prometheus (promauto.With(reg) against an explicit
// registry rather than the global one, one metrics.go per concern) but
// collapsed to a single registry shared by all four daemons: one
// Registry satisfies each subsystem's small metrics interface
// (satellite.TaskMetrics, broadcaster.QueueMetrics, messenger.Metrics)
// instead of one Prometheus-backed type per interface.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geoplaque/satellite/internal/cli/health"
	"github.com/geoplaque/satellite/internal/logger"
)

// Registry holds every metric the core exposes, backed by a private
// prometheus.Registry rather than the global default so multiple
// Registry values (e.g. in tests) never collide on metric names.
type Registry struct {
	reg         *prometheus.Registry
	serviceName string
	startedAt   time.Time

	BankUtilization   *prometheus.GaugeVec
	PaquetConcurrency prometheus.Gauge
	QueueDepth        *prometheus.GaugeVec
	APNsRetriesTotal  *prometheus.CounterVec
}

// New creates a Registry with every metric registered. serviceName
// identifies the binary in the /health response (e.g. "satellited").
func New(serviceName string) *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		reg:         reg,
		serviceName: serviceName,
		startedAt:   time.Now(),
		BankUtilization: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "satellite_mmps_bank_utilization_ratio",
				Help: "Fraction of a bank's buffers currently allocated, by bank id",
			},
			[]string{"bank_id"},
		),
		PaquetConcurrency: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "satellite_task_active_paquets",
				Help: "Number of satellite tasks currently processing a paquet",
			},
		),
		QueueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "satellite_queue_depth",
				Help: "Current depth of a named internal queue (revised sessions, pending notifications)",
			},
			[]string{"queue"},
		),
		APNsRetriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "satellite_messenger_apns_retries_total",
				Help: "Total number of APNs send retries, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// IncActivePaquets satisfies satellite.TaskMetrics: a paquet worker has
// started.
func (r *Registry) IncActivePaquets() {
	r.PaquetConcurrency.Inc()
}

// DecActivePaquets satisfies satellite.TaskMetrics: a paquet worker has
// finished.
func (r *Registry) DecActivePaquets() {
	r.PaquetConcurrency.Dec()
}

// SetQueueDepth satisfies both broadcaster.QueueMetrics and
// messenger.Metrics: queue names the backlog being reported
// ("broadcaster", "messenger").
func (r *Registry) SetQueueDepth(queue string, depth int) {
	r.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// IncAPNsRetry satisfies messenger.Metrics: outcome is "connect" for a
// failed APNs dial (ensureConnected) or the backoff tier
// classifyAndBackoff chose ("busy", "transmit", "other").
func (r *Registry) IncAPNsRetry(outcome string) {
	r.APNsRetriesTotal.WithLabelValues(outcome).Inc()
}

// SetBankUtilization satisfies cliutil's bank-utilization poller:
// bankID names the mmps bank, ratio is its fraction of buffers in use.
func (r *Registry) SetBankUtilization(bankID uint32, ratio float64) {
	r.BankUtilization.WithLabelValues(fmt.Sprintf("%d", bankID)).Set(ratio)
}

// Handler returns the HTTP handler serving this registry's metrics in
// the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// healthHandler reports this process's liveness and uptime as the
// health.Response shape satellitectl's and each daemon's own "status"
// command parse.
func (r *Registry) healthHandler(w http.ResponseWriter, req *http.Request) {
	uptime := time.Since(r.startedAt)

	var resp health.Response
	resp.Status = "healthy"
	resp.Timestamp = time.Now().Format(time.RFC3339)
	resp.Data.Service = r.serviceName
	resp.Data.StartedAt = r.startedAt.Format(time.RFC3339)
	resp.Data.Uptime = uptime.String()
	resp.Data.UptimeSec = int64(uptime.Seconds())

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Serve runs an HTTP server exposing /metrics and /health on addr
// until ctx is canceled, then shuts it down with a bounded grace
// period.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/health", r.healthHandler)

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		if err != nil {
			logger.ErrorCtx(ctx, "metrics server exited", "addr", addr, "error", err)
		}
		return err
	}
}
