// Package metrics defines the Prometheus collectors of the image pipeline.
// HTTP request metrics are recorded separately by the router middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Modulations counts completed modulations by function and orientation.
	Modulations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "periodic",
		Name:      "modulations_total",
		Help:      "Number of images modulated, by function and orientation.",
	}, []string{"func", "orientation"})

	// Failures counts rejected or failed requests by error class.
	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "periodic",
		Name:      "failures_total",
		Help:      "Number of failed processing requests, by error class.",
	}, []string{"class"})

	// StageSeconds observes the duration of each pipeline stage.
	StageSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "periodic",
		Name:      "stage_duration_seconds",
		Help:      "Duration of image pipeline stages.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"stage"})

	// InputPixels observes the size of decoded uploads.
	InputPixels = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "periodic",
		Name:      "input_pixels",
		Help:      "Pixel count of decoded uploads.",
		Buckets:   prometheus.ExponentialBuckets(1<<12, 4, 8),
	})
)
