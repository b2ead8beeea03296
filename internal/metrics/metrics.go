// Package metrics exposes propertyd's Prometheus metrics.
//
// Metrics owns a private registry with Go runtime and process collectors,
// core-event counters (it is itself a relay sink), relay queue statistics,
// the number of registered objects, and HTTP request counters fed by the
// API middleware.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
)

const namespace = "propertyd"

// RelayStats is the part of the relay the metrics read.
type RelayStats interface {
	Stats() coreevent.Stats
}

// ObjectCounter reports how many root objects are registered.
type ObjectCounter interface {
	Len() int
}

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	CoreEvents       *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	RemoteWrites     *prometheus.CounterVec
	WebSocketClients prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CoreEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "core_events",
				Name:      "total",
				Help:      "Core events delivered by the relay, by event",
			},
			[]string{"event"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RemoteWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "writes_total",
				Help:      "Property writes received over MQTT, by result",
			},
			[]string{"result"},
		),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CoreEvents,
		m.HTTPRequests,
		m.HTTPDuration,
		m.RemoteWrites,
		m.WebSocketClients,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WatchRelay exports the relay counters, read at scrape time.
func (m *Metrics) WatchRelay(r RelayStats) {
	stat := func(name, help string, read func(coreevent.Stats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(r.Stats()) })
	}
	m.registry.MustRegister(
		stat("delivered_total", "Sink deliveries that succeeded", func(s coreevent.Stats) float64 { return float64(s.Delivered) }),
		stat("failed_total", "Sink deliveries that returned an error", func(s coreevent.Stats) float64 { return float64(s.Failed) }),
		stat("dropped_total", "Core events dropped on a full or closed queue", func(s coreevent.Stats) float64 { return float64(s.Dropped) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "queued",
			Help:      "Core events waiting for delivery",
		}, func() float64 { return float64(r.Stats().Queued) }),
	)
}

// WatchObjects exports the number of registered root objects.
func (m *Metrics) WatchObjects(c ObjectCounter) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "objects",
		Help:      "Registered root property objects",
	}, func() float64 { return float64(c.Len()) }))
}

// Name implements coreevent.Sink.
func (m *Metrics) Name() string { return "metrics" }

// Handle implements coreevent.Sink.
func (m *Metrics) Handle(_ context.Context, args coreevent.Args) error {
	m.CoreEvents.WithLabelValues(args.Name()).Inc()
	return nil
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
