// Package metrics exposes Prometheus instrumentation for the transcoding
// queue and worker.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
)

// Recorder owns a private registry so several daemons (or tests) can run in
// one process without duplicate registration panics.
type Recorder struct {
	registry *prometheus.Registry

	queueDepth   prometheus.Gauge
	workerActive prometheus.Gauge
	jobsTotal    *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	jobsByStatus *prometheus.GaugeVec
}

// New builds a Recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hlsforge_queue_depth",
			Help: "Jobs waiting in the in-memory FIFO",
		}),
		workerActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hlsforge_worker_active",
			Help: "Worker activity (1=transcoding, 0=idle)",
		}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hlsforge_jobs_total",
			Help: "Finished jobs by outcome",
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hlsforge_job_duration_seconds",
			Help:    "Wall time from Processing to a terminal status",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}),
		jobsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hlsforge_jobs",
			Help: "Status records in the store by status",
		}, []string{"status"}),
	}
	r.registry.MustRegister(
		r.queueDepth,
		r.workerActive,
		r.jobsTotal,
		r.jobDuration,
		r.jobsByStatus,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) QueueDepthChanged(depth int) {
	r.queueDepth.Set(float64(depth))
}

func (r *Recorder) JobStarted(string) {
	r.workerActive.Set(1)
}

func (r *Recorder) JobFinished(_ string, status queue.Status, elapsed time.Duration) {
	r.workerActive.Set(0)
	r.jobsTotal.WithLabelValues(string(status)).Inc()
	r.jobDuration.Observe(elapsed.Seconds())
}

// ObserveStats copies store counts into the per-status gauge.
func (r *Recorder) ObserveStats(stats map[queue.Status]int) {
	for _, status := range queue.AllStatuses() {
		r.jobsByStatus.WithLabelValues(string(status)).Set(float64(stats[status]))
	}
}

// StatsSource is the subset of the status store the refresher reads.
type StatsSource interface {
	Stats(ctx context.Context) (map[queue.Status]int, error)
}

// RunStatsRefresher samples store counts every interval until ctx ends.
func (r *Recorder) RunStatsRefresher(ctx context.Context, source StatsSource, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	logger = logging.NewComponentLogger(logger, "metrics")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh := func() {
		stats, err := source.Stats(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Debug("metrics stats refresh failed", logging.Error(err))
			}
			return
		}
		r.ObserveStats(stats)
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}
