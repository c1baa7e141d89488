// Package metrics reports what the shard scheduler and resolver are doing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives scheduler and resolver events.
// Implementations must be safe for concurrent use and must not block.
type Recorder interface {
	// CacheHit is called when a shard request is answered by an existing entry.
	CacheHit()
	// CacheMiss is called when a shard request creates a new entry.
	CacheMiss()
	// QueueDepth reports the dispatch queue length and in-flight count.
	QueueDepth(queued, inFlight int)
	// FetchDone is called when a shard fetch settles. status is "ok" or a
	// transport failure classification.
	FetchDone(status string, d time.Duration)
	// Evicted is called when a shard entry is dropped from the cache.
	Evicted()
	// Outcome is called once per resolution with its outcome name.
	Outcome(outcome string)
}

// Noop ignores all events.
type Noop struct{}

func (Noop) CacheHit() {}
func (Noop) CacheMiss() {}
func (Noop) QueueDepth(int, int) {}
func (Noop) FetchDone(string, time.Duration) {}
func (Noop) Evicted() {}
func (Noop) Outcome(string) {}

const namespace = "acdb"

// Prometheus exports events as Prometheus metrics on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	cacheRequests *prometheus.CounterVec
	queued        prometheus.Gauge
	inFlight      prometheus.Gauge
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	evictions     prometheus.Counter
	outcomes      *prometheus.CounterVec
	databaseUp    prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them together with the
// Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shard_cache",
			Name:      "requests_total",
			Help:      "Shard requests by cache result.",
		}, []string{"result"}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "queued",
			Help:      "Shard fetches waiting for dispatch.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "in_flight",
			Help:      "Shard fetches currently outstanding.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "fetches_total",
			Help:      "Settled shard fetches by status.",
		}, []string{"status"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of shard fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shard_cache",
			Name:      "evictions_total",
			Help:      "Shard cache entries dropped after a timeout.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Resolutions by outcome.",
		}, []string{"outcome"}),
		databaseUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_up",
			Help:      "1 when the last database probe succeeded, 0 once it is marked unhealthy.",
		}),
	}

	p.registry.MustRegister(
		p.cacheRequests,
		p.queued,
		p.inFlight,
		p.fetches,
		p.fetchDuration,
		p.evictions,
		p.outcomes,
		p.databaseUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) CacheHit()  { p.cacheRequests.WithLabelValues("hit").Inc() }
func (p *Prometheus) CacheMiss() { p.cacheRequests.WithLabelValues("miss").Inc() }

func (p *Prometheus) QueueDepth(queued, inFlight int) {
	p.queued.Set(float64(queued))
	p.inFlight.Set(float64(inFlight))
}

func (p *Prometheus) FetchDone(status string, d time.Duration) {
	p.fetches.WithLabelValues(status).Inc()
	p.fetchDuration.Observe(d.Seconds())
}

func (p *Prometheus) Evicted() { p.evictions.Inc() }

func (p *Prometheus) Outcome(outcome string) { p.outcomes.WithLabelValues(outcome).Inc() }

// DatabaseUp records the database health status.
func (p *Prometheus) DatabaseUp(up bool) {
	if up {
		p.databaseUp.Set(1)
		return
	}
	p.databaseUp.Set(0)
}

// Registry returns the registry holding the collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
