package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "crate"

// registerMetrics exposes aggregator counters and the running job count. Values are read on scrape.
func registerMetrics(reg *prometheus.Registry, stats StatsSource, jobs JobService) error {
	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "import_jobs_running",
			Help:      "Import jobs currently running in this process.",
		}, func() float64 { return float64(jobs.Running()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "provider",
			Name:      "searches_total",
			Help:      "Artist lookups attempted through the aggregator.",
		}, func() float64 { return float64(stats.Stats().TotalSearches) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "provider",
			Name:      "failures_total",
			Help:      "Artist lookups that no provider could resolve.",
		}, func() float64 { return float64(stats.Stats().Failures) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "provider",
			Name:      "albums_total",
			Help:      "Albums returned by successful lookups.",
		}, func() float64 { return float64(stats.Stats().TotalAlbums) }),
	}

	for _, source := range stats.Providers() {
		labels := prometheus.Labels{"provider": string(source)}
		cs = append(cs,
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Subsystem:   "provider",
				Name:        "successes_total",
				Help:        "Lookups resolved by the provider.",
				ConstLabels: labels,
			}, func() float64 { return float64(stats.Stats().Successes[source]) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Subsystem:   "provider",
				Name:        "transport_errors_total",
				Help:        "Provider calls that failed in transport.",
				ConstLabels: labels,
			}, func() float64 { return float64(stats.Stats().TransportErrors[source]) }),
		)
	}

	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorHandling: promhttp.HTTPErrorOnError})
}
