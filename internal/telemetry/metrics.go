package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the global metrics registry. Collectors are registered on a
// private registry so tests and multiple binaries never collide with the
// default one.
var Metrics = newCollectors()

type Collectors struct {
	registry *prometheus.Registry

	SourceFailures     *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	PregameBuilds      *prometheus.CounterVec
	PregameBuildTime   prometheus.Histogram
	SimulationTime     prometheus.Histogram
	SnapshotsProcessed prometheus.Counter
	PollFailures       prometheus.Counter
	ActiveSessions     prometheus.Gauge
	FanoutClients      prometheus.Gauge
	FanoutDrops        prometheus.Counter
	HandlerFailures    *prometheus.CounterVec
}

func newCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "squares_source_failures_total",
			Help: "External data source failures by source",
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "squares_model_cache_lookups_total",
			Help: "Pre-game model cache lookups by layer and result",
		}, []string{"layer", "result"}),
		PregameBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "squares_pregame_builds_total",
			Help: "Pre-game model computations by source mode",
		}, []string{"mode"}),
		PregameBuildTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "squares_pregame_build_seconds",
			Help:    "Wall time of uncached pre-game model computations",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SimulationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "squares_realtime_simulation_seconds",
			Help:    "Wall time of one realtime Monte Carlo pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		SnapshotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squares_live_snapshots_total",
			Help: "Live snapshots fetched and published",
		}),
		PollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squares_live_poll_failures_total",
			Help: "Live snapshot fetch failures",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "squares_live_sessions",
			Help: "Live poll sessions currently running",
		}),
		FanoutClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "squares_fanout_clients",
			Help: "Connected WebSocket board viewers",
		}),
		FanoutDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "squares_fanout_dropped_total",
			Help: "Messages dropped for slow WebSocket clients",
		}),
		HandlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "squares_bus_handler_failures_total",
			Help: "Event bus handler errors and panics by event type",
		}, []string{"event", "kind"}),
	}
	reg.MustRegister(
		c.SourceFailures, c.CacheLookups, c.PregameBuilds,
		c.PregameBuildTime, c.SimulationTime,
		c.SnapshotsProcessed, c.PollFailures, c.ActiveSessions,
		c.FanoutClients, c.FanoutDrops, c.HandlerFailures,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
