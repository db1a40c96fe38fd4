package httpapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	upstream *prometheus.CounterVec
	streams  prometheus.Gauge
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whm",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Proxy requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whm",
			Subsystem: "proxy",
			Name:      "request_duration_seconds",
			Help:      "Proxy request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whm",
			Subsystem: "proxy",
			Name:      "backend_errors_total",
			Help:      "Backend calls that failed, by upstream status (0 for transport errors).",
		}, []string{"status"}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "whm",
			Subsystem: "proxy",
			Name:      "realtime_streams",
			Help:      "Open realtime websocket relays.",
		}),
	}
	reg.MustRegister(
		m.requests, m.duration, m.upstream, m.streams,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observe(route, method string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *metrics) backendError(status int) {
	m.upstream.WithLabelValues(strconv.Itoa(status)).Inc()
}
