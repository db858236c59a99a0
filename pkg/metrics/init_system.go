package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initSystemMetrics registers the Go runtime and process collectors under
// the navigator_ prefix, plus the uptime gauge.
func (r *Registry) initSystemMetrics() {
	prefixed := prometheus.WrapRegistererWithPrefix(namespace+"_", r.registry)
	prefixed.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.UptimeSeconds = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "uptime_seconds",
		Help: "Seconds since the server started",
	})
}
