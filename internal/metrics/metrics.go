package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/notifyhub/xnft-notify/internal/domain"
	"github.com/notifyhub/xnft-notify/internal/provider"
	"github.com/notifyhub/xnft-notify/internal/worker"
)

// Metrics groups all Prometheus instruments used by a run.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	reg prometheus.Gatherer

	HoldersLoaded     prometheus.Counter
	LookupsResolved   prometheus.Counter
	LookupsUnresolved *prometheus.CounterVec
	LookupLatency     prometheus.Histogram
	BatchesProcessed  prometheus.Counter
	BatchLatency      prometheus.Histogram
	Dispatches        *prometheus.CounterVec
	Recipients        prometheus.Gauge
}

// New registers all instruments with reg.
// A custom registry keeps tests isolated and avoids global state.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,

		HoldersLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xnft_holders_loaded_total",
			Help: "Holders produced by the holder source.",
		}),
		LookupsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xnft_lookups_resolved_total",
			Help: "Holders resolved to a user id.",
		}),
		LookupsUnresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xnft_lookups_unresolved_total",
			Help: "Holders that could not be resolved, by reason.",
		}, []string{"reason"}),
		LookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xnft_lookup_seconds",
			Help:    "Latency of a single user info lookup.",
			Buckets: prometheus.DefBuckets,
		}),
		BatchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xnft_batches_processed_total",
			Help: "Batches settled by the scheduler.",
		}),
		BatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xnft_batch_seconds",
			Help:    "Time for every lookup of a batch to settle.",
			Buckets: prometheus.DefBuckets,
		}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xnft_dispatches_total",
			Help: "Push notification dispatches by outcome.",
		}, []string{"outcome"}),
		Recipients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xnft_last_dispatch_recipients",
			Help: "Recipients carried by the most recent dispatch.",
		}),
	}

	reg.MustRegister(
		m.HoldersLoaded,
		m.LookupsResolved,
		m.LookupsUnresolved,
		m.LookupLatency,
		m.BatchesProcessed,
		m.BatchLatency,
		m.Dispatches,
		m.Recipients,
	)

	return m
}

// LookupHooks returns the callbacks expected by provider.LookupHooks.
// Keeps the prometheus calls here so the provider package stays import-free.
func (m *Metrics) LookupHooks() provider.LookupHooks {
	return provider.LookupHooks{
		OnResolved: func(latency time.Duration) {
			m.LookupsResolved.Inc()
			m.LookupLatency.Observe(latency.Seconds())
		},
		OnUnresolved: func(reason string, latency time.Duration) {
			m.LookupsUnresolved.WithLabelValues(reason).Inc()
			m.LookupLatency.Observe(latency.Seconds())
		},
	}
}

// OnBatch matches worker.BatchOptions.OnBatch.
func (m *Metrics) OnBatch() func(worker.BatchStats) {
	return func(s worker.BatchStats) {
		m.BatchesProcessed.Inc()
		m.BatchLatency.Observe(s.Elapsed.Seconds())
	}
}

// ObserveHolders records how many holders a run loaded.
func (m *Metrics) ObserveHolders(n int) {
	m.HoldersLoaded.Add(float64(n))
}

// ObserveDispatch records the outcome of a dispatch.
func (m *Metrics) ObserveDispatch(recipients int, out domain.DispatchOutcome) {
	switch {
	case out.Skipped:
		m.Dispatches.WithLabelValues("skipped").Inc()
	case out.Sent:
		m.Dispatches.WithLabelValues("sent").Inc()
		m.Recipients.Set(float64(recipients))
	default:
		m.Dispatches.WithLabelValues("failed").Inc()
	}
}

// Push sends every registered metric to a Prometheus Pushgateway under job.
// A CLI run is too short-lived to be scraped.
func (m *Metrics) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(m.reg).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
