package apiclient

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsOptions configures the client request collectors.
type MetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// Metrics holds the collectors the client reports outgoing calls to.
type Metrics struct {
	Requests       *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	Unauthorized   prometheus.Counter
	NetworkFailure prometheus.Counter
}

// NewMetrics creates the collectors and registers them. Collectors that are
// already registered under the same name are reused.
func NewMetrics(opts MetricsOptions) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "propdesk"
	}
	subsystem := opts.Subsystem
	if subsystem == "" {
		subsystem = "api_client"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Outgoing API requests partitioned by method and status code.",
		}, []string{"method", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Latency of outgoing API requests in seconds.",
			Buckets:   buckets,
		}, []string{"method"}),
		Unauthorized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "unauthorized_total",
			Help:      "401 answers that forced the stored token to be cleared.",
		}),
		NetworkFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "network_failures_total",
			Help:      "Requests that failed without a usable response.",
		}),
	}

	var err error
	if m.Requests, err = register(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, m.Duration); err != nil {
		return nil, err
	}
	if m.Unauthorized, err = register(reg, m.Unauthorized); err != nil {
		return nil, err
	}
	if m.NetworkFailure, err = register(reg, m.NetworkFailure); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("apiclient: existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("apiclient: register collector: %w", err)
	}
	return c, nil
}

func (m *Metrics) observe(method string, status int, kind *Kind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
	if kind == nil {
		return
	}
	switch *kind {
	case KindUnauthorized:
		m.Unauthorized.Inc()
	case KindNetwork:
		m.NetworkFailure.Inc()
	}
}
