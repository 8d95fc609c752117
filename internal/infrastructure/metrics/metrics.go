package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homebus"

// Metrics holds every homebus collector.
type Metrics struct {
	registry *prometheus.Registry

	protocolErrors    *prometheus.CounterVec
	commandsSent      *prometheus.CounterVec
	commandsAcked     prometheus.Counter
	ackLatency        prometheus.Histogram
	requestsExpired   prometheus.Counter
	requestsPending   prometheus.Gauge
	sensorReadings    *prometheus.CounterVec
	devicesRegistered prometheus.Gauge
	devicesOn         prometheus.Gauge
	consumption       prometheus.Gauge
	httpTiming        *prometheus.HistogramVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Inbound bus messages dropped as protocol errors.",
		}, []string{"kind"}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Commands published to devices.",
		}, []string{"origin"}),
		commandsAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_acknowledged_total",
			Help:      "Requests resolved by a device acknowledgement.",
		}),
		ackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_ack_seconds",
			Help:      "Time from sending a request to its acknowledgement.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		requestsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_expired_total",
			Help:      "Requests failed because no acknowledgement arrived in time.",
		}),
		requestsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_pending",
			Help:      "Requests awaiting acknowledgement.",
		}),
		sensorReadings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_readings_total",
			Help:      "Sensor updates received.",
		}, []string{"kind"}),
		devicesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_registered",
			Help:      "Devices in the registry.",
		}),
		devicesOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_on",
			Help:      "Registered devices reported on.",
		}),
		consumption: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_consumption_watts",
			Help:      "Summed consumption of the devices that are on.",
		}),
		httpTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.protocolErrors,
		m.commandsSent,
		m.commandsAcked,
		m.ackLatency,
		m.requestsExpired,
		m.requestsPending,
		m.sensorReadings,
		m.devicesRegistered,
		m.devicesOn,
		m.consumption,
		m.httpTiming,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ProtocolError counts a dropped inbound message.
func (m *Metrics) ProtocolError(kind string) {
	m.protocolErrors.WithLabelValues(kind).Inc()
}

// CommandSent counts a published command.
func (m *Metrics) CommandSent(origin string) {
	m.commandsSent.WithLabelValues(origin).Inc()
}

// CommandAcknowledged counts a resolved request and records its latency.
func (m *Metrics) CommandAcknowledged(latency time.Duration) {
	m.commandsAcked.Inc()
	m.ackLatency.Observe(latency.Seconds())
}

// RequestsExpired counts requests failed by the sweeper.
func (m *Metrics) RequestsExpired(n int) {
	m.requestsExpired.Add(float64(n))
}

// SensorReading counts a sensor update.
func (m *Metrics) SensorReading(kind string) {
	m.sensorReadings.WithLabelValues(kind).Inc()
}

// ObserveRegistry sets the registry gauges.
func (m *Metrics) ObserveRegistry(devices, devicesOn int, consumption float64) {
	m.devicesRegistered.Set(float64(devices))
	m.devicesOn.Set(float64(devicesOn))
	m.consumption.Set(consumption)
}

// ObservePending sets the pending request gauge.
func (m *Metrics) ObservePending(n int) {
	m.requestsPending.Set(float64(n))
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(route string, code int, elapsed time.Duration) {
	m.httpTiming.WithLabelValues(route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
