// Package metrics exposes Prometheus collectors for agent hosts.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gridbot.ai/internal/agent"
	"gridbot.ai/internal/agent/report"
)

const namespace = "gridbot"

type Metrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	events       *prometheus.CounterVec
	discoveries  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	completed    prometheus.Gauge
	pending      prometheus.Gauge
	seen         prometheus.Gauge
	teleports    *prometheus.GaugeVec
	terminated   prometheus.Gauge
	requests     *prometheus.CounterVec

	last agent.Stats
}

// MustNewMetrics registers the collectors with reg and panics on a
// registration error. Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agent", Name: "ticks_total",
			Help: "Decision cycles run.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "agent", Name: "tick_duration_seconds",
			Help:    "Wall time of one decision cycle including world requests.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agent", Name: "events_total",
			Help: "World events reported, by kind.",
		}, []string{"kind"}),
		discoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agent", Name: "discoveries_total",
			Help: "Sensed cells reported, by content.",
		}, []string{"content"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agent", Name: "failures_total",
			Help: "Failed world requests and dropped tasks, by reason.",
		}, []string{"reason"}),
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "agent", Name: "tasks_completed",
			Help: "Tasks completed so far in the current run.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "agent", Name: "tasks_pending",
			Help: "Tasks waiting in the queue.",
		}),
		seen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "agent", Name: "targets_seen",
			Help: "Coordinates ever queued as task targets.",
		}),
		teleports: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "agent", Name: "teleports_known",
			Help: "Registered teleports, by active flag.",
		}, []string{"active"}),
		terminated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "agent", Name: "terminated",
			Help: "1 once the completion goal was reached.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "requests_total",
			Help: "Requests served by the websocket world, by op and outcome.",
		}, []string{"op", "ok"}),
	}
	reg.MustRegister(
		m.ticks, m.tickDuration, m.events, m.discoveries, m.failures,
		m.completed, m.pending, m.seen, m.teleports, m.terminated, m.requests,
	)
	return m
}

// ObserveTick records a drained tick report and the agent counters after it.
// Failure counters are cumulative in Stats, so only the delta since the last
// call is added. It is not safe for concurrent use.
func (m *Metrics) ObserveTick(t report.Tick, s agent.Stats, d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	for _, e := range t.Events {
		m.events.WithLabelValues(string(e.Kind)).Inc()
	}
	for _, disc := range t.Discoveries {
		m.discoveries.WithLabelValues(disc.Cell.Content.String()).Inc()
	}

	addDelta(m.failures.WithLabelValues("sensing"), s.SensingFailures, m.last.SensingFailures)
	addDelta(m.failures.WithLabelValues("action"), s.ActionFailures, m.last.ActionFailures)
	addDelta(m.failures.WithLabelValues("undetermined"), s.Undetermined, m.last.Undetermined)
	addDelta(m.failures.WithLabelValues("dropped"), s.Dropped, m.last.Dropped)
	m.last = s

	m.completed.Set(float64(s.Completed))
	m.pending.Set(float64(s.Pending))
	m.seen.Set(float64(s.Seen))
	m.teleports.WithLabelValues("true").Set(float64(s.ActiveTeleports))
	m.teleports.WithLabelValues("false").Set(float64(s.InactiveTeleports))
	if s.Terminated {
		m.terminated.Set(1)
	} else {
		m.terminated.Set(0)
	}
}

// ObserveRequest counts one request served by the websocket world.
func (m *Metrics) ObserveRequest(op string, ok bool) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, strconv.FormatBool(ok)).Inc()
}

func addDelta(c prometheus.Counter, cur, prev int) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}
