// Package metrics exposes Prometheus collectors for the simulation loop. Every method is safe to
// call on a nil *Metrics so components can treat metrics as optional.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every collector name.
const DefaultNamespace = "oxy_life"

// Metrics holds the collectors updated by the frame orchestrator and the engine loop.
type Metrics struct {
	ticks        prometheus.Counter
	ticksSkipped prometheus.Counter
	framesLost   prometheus.Counter
	failures     *prometheus.CounterVec
	generation   prometheus.Gauge
	population   prometheus.Gauge
	tickSeconds  prometheus.Histogram
}

// New creates the collectors and registers them on reg. A collector that is already registered
// with an identical description is reused, so New may be called more than once per registry.
//
// Parameters:
//   - reg: the registry to register on, usually prometheus.DefaultRegisterer
//   - namespace: the metric namespace, DefaultNamespace when empty
//
// Returns:
//   - *Metrics: the collectors
//   - error: a registration error
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Simulation ticks whose compute pass was submitted.",
		}),
		ticksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Host ticks dropped because the previous tick was still encoding.",
		}),
		framesLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Render passes skipped because the surface was unavailable.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestration_failures_total",
			Help:      "Fatal orchestration errors by phase.",
		}, []string{"phase"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Current simulation generation.",
		}),
		population: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population",
			Help:      "Alive cells at the last sampled generation.",
		}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent encoding and submitting one tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	var err error
	m.ticks = register(reg, m.ticks, &err)
	m.ticksSkipped = register(reg, m.ticksSkipped, &err)
	m.framesLost = register(reg, m.framesLost, &err)
	m.failures = register(reg, m.failures, &err)
	m.generation = register(reg, m.generation, &err)
	m.population = register(reg, m.population, &err)
	m.tickSeconds = register(reg, m.tickSeconds, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, returning the existing collector if an identical one is already present.
// The first error is kept in errp.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if reg == nil || *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

// TickCompleted records a tick whose compute pass was submitted.
func (m *Metrics) TickCompleted(generation uint64, d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.generation.Set(float64(generation))
	m.tickSeconds.Observe(d.Seconds())
}

// TickSkipped records a host tick that arrived while another was in progress.
func (m *Metrics) TickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}

// FrameSkipped records a render pass dropped on a transient surface error.
func (m *Metrics) FrameSkipped() {
	if m == nil {
		return
	}
	m.framesLost.Inc()
}

// Failure records a fatal orchestration error in the given phase.
func (m *Metrics) Failure(phase string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(phase).Inc()
}

// SetPopulation records the alive cell count of a sampled generation.
func (m *Metrics) SetPopulation(n int) {
	if m == nil {
		return
	}
	m.population.Set(float64(n))
}
