package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidmeta",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vidmeta",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidmeta",
		Name:      "provider_requests_total",
		Help:      "Total requests to metadata providers by provider name and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vidmeta",
		Name:      "provider_request_duration_seconds",
		Help:      "Metadata provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vidmeta",
		Name:      "provider_available",
		Help:      "Whether a provider's last request succeeded (1) or failed (0).",
	}, []string{"provider"})

	DirectoryRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidmeta",
		Name:      "mirror_directory_refresh_total",
		Help:      "Mirror directory refresh attempts by outcome.",
	}, []string{"status"})

	MirrorPoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vidmeta",
		Name:      "mirror_pool_size",
		Help:      "Healthy mirror instances in the last refreshed pool.",
	})

	MirrorProbesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidmeta",
		Name:      "mirror_probes_total",
		Help:      "Individual mirror probe attempts during trending scans by outcome.",
	}, []string{"outcome"})

	MirrorScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidmeta",
		Name:      "mirror_scans_total",
		Help:      "Completed trending mirror scans by result and pool source.",
	}, []string{"result", "pool"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		DirectoryRefreshTotal,
		MirrorPoolSize,
		MirrorProbesTotal,
		MirrorScansTotal,
	)
}
