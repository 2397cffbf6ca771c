// Package metrics exposes feeder counters and gauges to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/feeder/internal/schedule"
)

const namespace = "feeder"

// Update results for ScheduleUpdates.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Metrics holds the feeder collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Feeds           *prometheus.CounterVec
	ActuationTime   prometheus.Histogram
	ScheduleUpdates *prometheus.CounterVec
	ScheduleHour    prometheus.Gauge
	ScheduleMinute  prometheus.Gauge
	LastFeed        prometheus.Gauge
	MQTTConnected   prometheus.Gauge
}

// New registers all collectors, including the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Feeds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feeds_total",
			Help:      "Actuator runs by outcome.",
		}, []string{"outcome"}),
		ActuationTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actuation_seconds",
			Help:      "Wall time spent driving the motor per feed.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10},
		}),
		ScheduleUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_updates_total",
			Help:      "Schedule change requests by source and result.",
		}, []string{"source", "result"}),
		ScheduleHour: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_hour",
			Help:      "Scheduled feeding hour (24h, local time).",
		}),
		ScheduleMinute: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_minute",
			Help:      "Scheduled feeding minute.",
		}),
		LastFeed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_feed_timestamp_seconds",
			Help:      "Unix time of the last successful feed.",
		}),
		MQTTConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 if the MQTT client is connected.",
		}),
	}
}

// SetSchedule records the current schedule.
func (m *Metrics) SetSchedule(s schedule.Schedule) {
	m.ScheduleHour.Set(float64(s.Hour))
	m.ScheduleMinute.Set(float64(s.Minute))
}

// ObserveFeed records one actuator run.
func (m *Metrics) ObserveFeed(at time.Time, elapsed time.Duration, err error) {
	m.ActuationTime.Observe(elapsed.Seconds())
	if err != nil {
		m.Feeds.WithLabelValues("failed").Inc()
		return
	}
	m.Feeds.WithLabelValues("ok").Inc()
	m.LastFeed.Set(float64(at.Unix()))
}

// ObserveUpdate records a schedule change request.
func (m *Metrics) ObserveUpdate(source string, err error) {
	result := ResultAccepted
	if err != nil {
		result = ResultRejected
	}
	m.ScheduleUpdates.WithLabelValues(source, result).Inc()
}

// SetMQTTConnected records the MQTT connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if connected {
		m.MQTTConnected.Set(1)
		return
	}
	m.MQTTConnected.Set(0)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
