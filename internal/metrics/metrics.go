// Package metrics exports mine registry activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mines"

// Exporter records registry activity. It implements mine.Observer.
type Exporter struct {
	registry *prometheus.Registry

	generated *prometheus.CounterVec
	pruned    prometheus.Counter
	exits     *prometheus.CounterVec
	applied   *prometheus.CounterVec
	active    prometheus.Gauge
	backlog   prometheus.Gauge
	deepest   prometheus.Gauge
}

var _ mine.Observer = (*Exporter)(nil)

// NewExporter creates an exporter with its own registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "levels_generated_total",
			Help:      "Level instances generated, by area.",
		}, []string{"area"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "levels_pruned_total",
			Help:      "Level instances dropped by pruning.",
		}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_placed_total",
			Help:      "Ladders and shafts opened, by kind.",
		}, []string{"kind"}),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Queued events applied to levels, by kind.",
		}, []string{"kind"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_levels",
			Help:      "Level instances currently alive.",
		}),
		backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_backlog",
			Help:      "Events retained in the queue for slow participants.",
		}),
		deepest: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deepest_level",
			Help:      "Deepest level ever reached.",
		}),
	}
	e.registry.MustRegister(e.generated, e.pruned, e.exits, e.applied, e.active, e.backlog, e.deepest)
	return e
}

func (e *Exporter) LevelGenerated(level int, area mine.AreaID) {
	e.generated.WithLabelValues(area.String()).Inc()
}

func (e *Exporter) LevelPruned(level int) {
	e.pruned.Inc()
}

func (e *Exporter) LadderPlaced(level int, kind mine.ExitKind) {
	e.exits.WithLabelValues(kind.String()).Inc()
}

func (e *Exporter) ActiveLevels(n int) {
	e.active.Set(float64(n))
}

func (e *Exporter) EventApplied(kind events.Kind) {
	e.applied.WithLabelValues(string(kind)).Inc()
}

// Handler serves the exporter's registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Sampler reports values the exporter polls rather than observes.
type Sampler interface {
	QueueLen() int
	DeepestLevel() int
}

// Sample records one reading from s.
func (e *Exporter) Sample(s Sampler) {
	e.backlog.Set(float64(s.QueueLen()))
	e.deepest.Set(float64(s.DeepestLevel()))
}

// Run serves /metrics on addr and samples s every interval until ctx ends.
func (e *Exporter) Run(ctx context.Context, addr string, s Sampler, interval time.Duration) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Sample(s)
			case <-ctx.Done():
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdown)
				return
			}
		}
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
