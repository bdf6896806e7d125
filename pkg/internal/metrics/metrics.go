// Package metrics holds the prometheus collectors of the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forms"

var (
	FormsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "published_total",
		Help:      "Forms published.",
	})

	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Submissions persisted.",
	})

	Denials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_denials_total",
		Help:      "Attempts to take a form without permission.",
	})

	// Closures is labelled by how the report was delivered: channel, direct,
	// skipped or missing (form already gone).
	Closures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "closures_total",
		Help:      "Form closures by delivery result.",
	}, []string{"result"})

	Sweeps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Expiry sweeps run.",
	})

	SweepDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_dispatched_total",
		Help:      "Closures dispatched by the expiry sweeper.",
	})

	LiveForms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_forms",
		Help:      "Entry points currently registered.",
	})

	ChartRenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chart_render_seconds",
		Help:      "Time spent rendering one chart.",
		Buckets:   prometheus.DefBuckets,
	})
)
