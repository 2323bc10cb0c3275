// Package metrics exposes the control loop's state as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Xevi8X/central-heating-controller/internal/heating"
	"github.com/Xevi8X/central-heating-controller/internal/radiator"
)

// Message outcomes counted by Message.
const (
	ResultAccepted  = "accepted"
	ResultFault     = "fault"
	ResultMalformed = "malformed"
)

// Metrics holds the controller's collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	heatDemand    prometheus.Gauge
	totalPower    prometheus.Gauge
	powerRequired prometheus.Gauge
	radiators     prometheus.Gauge
	position      *prometheus.GaugeVec
	temperature   *prometheus.GaugeVec
	messages      *prometheus.CounterVec
	evictions     prometheus.Counter
	publishErrors prometheus.Counter
	mqttConnected prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		heatDemand: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heating_demand",
			Help: "1 if heat is demanded from the boiler, 0 otherwise.",
		}),
		totalPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heating_total_power_watts",
			Help: "Position-weighted power of all included radiators.",
		}),
		powerRequired: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heating_power_required_watts",
			Help: "Total power above which the boiler is switched on.",
		}),
		radiators: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heating_radiators",
			Help: "Number of radiators with a current reading.",
		}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heating_radiator_position_percent",
			Help: "Valve opening of each radiator.",
		}, []string{"radiator"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heating_radiator_temperature_celsius",
			Help: "Local temperature reported by each radiator.",
		}, []string{"radiator"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heating_messages_total",
			Help: "Inbound radiator messages by outcome.",
		}, []string{"result"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heating_stale_evictions_total",
			Help: "Radiator readings dropped for being stale.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heating_publish_errors_total",
			Help: "Failed command publishes.",
		}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heating_mqtt_connected",
			Help: "1 if connected to the broker, 0 otherwise.",
		}),
	}

	m.registry.MustRegister(
		m.heatDemand,
		m.totalPower,
		m.powerRequired,
		m.radiators,
		m.position,
		m.temperature,
		m.messages,
		m.evictions,
		m.publishErrors,
		m.mqttConnected,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records the outcome of an update cycle. Per-radiator series
// are rebuilt so evicted radiators disappear.
func (m *Metrics) ObserveCycle(readings []radiator.Reading, d heating.Demand, evicted int) {
	if m == nil {
		return
	}
	if d.On {
		m.heatDemand.Set(1)
	} else {
		m.heatDemand.Set(0)
	}
	m.totalPower.Set(d.TotalPower)
	m.powerRequired.Set(d.PowerRequired)
	m.radiators.Set(float64(len(readings)))
	m.evictions.Add(float64(evicted))

	m.position.Reset()
	m.temperature.Reset()
	for _, r := range readings {
		m.position.WithLabelValues(r.Name).Set(float64(r.Position))
		m.temperature.WithLabelValues(r.Name).Set(r.Temperature)
	}
}

// Message counts an inbound message by result.
func (m *Metrics) Message(result string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(result).Inc()
}

// PublishError counts a failed publish.
func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}

// SetMQTTConnected records broker connectivity.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.mqttConnected.Set(1)
	} else {
		m.mqttConnected.Set(0)
	}
}
