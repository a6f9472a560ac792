package mongo

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes connection-layer counters via Prometheus. All methods are
// nil-receiver safe so instrumentation stays optional.
type Metrics struct {
	connectAttempts *prometheus.CounterVec
	acquires        *prometheus.CounterVec
	probeLatency    prometheus.Histogram
}

// NewMetrics registers the connection metrics with the provided registerer.
// A nil registerer uses the default one. Double registration reuses the
// already-registered collectors instead of failing, so multiple managers can
// share one process registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	connectAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subtrack_mongo_connect_attempts_total",
		Help: "Connection attempts against the database, by outcome.",
	}, []string{"outcome"})
	acquires := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subtrack_mongo_acquires_total",
		Help: "Connection acquisitions, by path taken.",
	}, []string{"path"})
	probeLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "subtrack_mongo_health_probe_seconds",
		Help:    "Wall-clock latency of health probes.",
		Buckets: prometheus.DefBuckets,
	})

	if err := reg.Register(connectAttempts); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		connectAttempts = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(acquires); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		acquires = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(probeLatency); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		probeLatency = already.ExistingCollector.(prometheus.Histogram)
	}

	return &Metrics{
		connectAttempts: connectAttempts,
		acquires:        acquires,
		probeLatency:    probeLatency,
	}, nil
}

// ConnectAttempt records one connection attempt.
func (m *Metrics) ConnectAttempt(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.connectAttempts.WithLabelValues(outcome).Inc()
}

// Acquire records one acquisition and the path it took: cache, cold, direct
// or synthetic.
func (m *Metrics) Acquire(path string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(path).Inc()
}

// HealthProbe records the latency of one health probe.
func (m *Metrics) HealthProbe(d time.Duration) {
	if m == nil {
		return
	}
	m.probeLatency.Observe(d.Seconds())
}
