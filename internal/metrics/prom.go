package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Entry sources.
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

// Assistant outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeEmpty = "empty"
)

// Collectors groups the process-wide Prometheus instruments.
type Collectors struct {
	Registry *prometheus.Registry

	EntriesLogged     *prometheus.CounterVec
	EntriesDeleted    prometheus.Counter
	AutoLogFires      prometheus.Counter
	PlantGrowths      prometheus.Counter
	AssistantRequests *prometheus.CounterVec
	AssistantLatency  prometheus.Histogram
	PlantHeight       prometheus.Gauge
	TodayTotal        prometheus.Gauge
	DailyGoal         prometheus.Gauge
}

// NewCollectors registers every instrument on a fresh registry.
func NewCollectors() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		EntriesLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydrotrack",
			Name:      "entries_logged_total",
			Help:      "Intake entries recorded, by source.",
		}, []string{"source"}),
		EntriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydrotrack",
			Name:      "entries_deleted_total",
			Help:      "Intake entries deleted.",
		}),
		AutoLogFires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydrotrack",
			Name:      "autolog_fires_total",
			Help:      "Automatic doses logged by the scheduler.",
		}),
		PlantGrowths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydrotrack",
			Name:      "plant_growths_total",
			Help:      "Days on which the plant grew.",
		}),
		AssistantRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydrotrack",
			Name:      "assistant_requests_total",
			Help:      "Assistant messages, by outcome.",
		}, []string{"outcome"}),
		AssistantLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydrotrack",
			Name:      "assistant_latency_seconds",
			Help:      "Assistant round-trip latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		PlantHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydrotrack",
			Name:      "plant_height",
			Help:      "Current plant height.",
		}),
		TodayTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydrotrack",
			Name:      "today_total_liters",
			Help:      "Liters logged today.",
		}),
		DailyGoal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydrotrack",
			Name:      "daily_goal_liters",
			Help:      "Configured daily goal.",
		}),
	}
	c.Registry.MustRegister(
		c.EntriesLogged,
		c.EntriesDeleted,
		c.AutoLogFires,
		c.PlantGrowths,
		c.AssistantRequests,
		c.AssistantLatency,
		c.PlantHeight,
		c.TodayTotal,
		c.DailyGoal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}
