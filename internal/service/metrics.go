package service

import "github.com/prometheus/client_golang/prometheus"

var (
	inferencesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "core",
			Name:      "inferences_total",
			Help:      "Total inference calls by task, engine, and outcome",
		},
		[]string{"task", "engine", "outcome"},
	)

	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Model cache events (hit, miss, eviction)",
		},
		[]string{"event"},
	)

	loadedModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "cache",
			Name:      "loaded_models",
			Help:      "Model instances currently resident in the cache",
		},
	)

	modelLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "core",
			Name:      "model_load_duration_seconds",
			Help:      "Duration of model loads in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"engine"},
	)

	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "core",
			Name:      "inference_duration_seconds",
			Help:      "End-to-end duration of inference calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task", "engine"},
	)
)

func init() {
	prometheus.MustRegister(inferencesTotal, cacheEventsTotal, loadedModels, modelLoadDuration, inferenceDuration)
}
