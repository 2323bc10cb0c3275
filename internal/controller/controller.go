// Package controller ties radiator telemetry to the boiler switch: it admits
// inbound readings and runs the periodic update and refresh cycles.
package controller

import (
	"log"
	"sync"
	"time"

	"github.com/Xevi8X/central-heating-controller/internal/config"
	"github.com/Xevi8X/central-heating-controller/internal/heating"
	"github.com/Xevi8X/central-heating-controller/internal/metrics"
	"github.com/Xevi8X/central-heating-controller/internal/mqtt"
	"github.com/Xevi8X/central-heating-controller/internal/radiator"
	"github.com/Xevi8X/central-heating-controller/internal/relay"
	"github.com/Xevi8X/central-heating-controller/internal/status"
)

// Default intervals.
const (
	DefaultUpdateInterval  = 5 * time.Minute
	DefaultRefreshInterval = 15 * time.Minute
	DefaultCountdown       = 10 * time.Minute
)

// Options configures a Controller. Zero values take defaults.
type Options struct {
	Namespace       string
	SwitchName      string
	UpdateInterval  time.Duration
	RefreshInterval time.Duration
	StaleThreshold  time.Duration
	Countdown       time.Duration // switch auto-off delay sent with every demand
	SafeSetpoint    float64       // pushed to valves reporting implausible temperatures
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = mqtt.DefaultNamespace
	}
	if o.UpdateInterval == 0 {
		o.UpdateInterval = DefaultUpdateInterval
	}
	if o.RefreshInterval == 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.StaleThreshold == 0 {
		o.StaleThreshold = radiator.DefaultStaleThreshold
	}
	if o.Countdown == 0 {
		o.Countdown = DefaultCountdown
	}
	if o.SafeSetpoint == 0 {
		o.SafeSetpoint = radiator.DefaultSafeSetpoint
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Deps are the collaborators of a Controller. Config and Publisher are
// required; a nil Registry or History is created; Tracker, Relay and
// Metrics are optional.
type Deps struct {
	Config    *config.Store
	Publisher mqtt.Publisher
	Registry  *radiator.Registry
	History   *status.History
	Tracker   *status.Tracker
	Relay     relay.Switch
	Metrics   *metrics.Metrics
}

// Controller owns the control cycles.
type Controller struct {
	opts Options

	cfg      *config.Store
	pub      mqtt.Publisher
	registry *radiator.Registry
	history  *status.History
	tracker  *status.Tracker
	relay    relay.Switch
	metrics  *metrics.Metrics

	sched *Scheduler

	updateMu  sync.Mutex // one evict+compute+publish+record sequence at a time
	refreshMu sync.Mutex
}

// New creates an idle Controller.
func New(opts Options, d Deps) *Controller {
	opts = opts.withDefaults()
	if d.Registry == nil {
		d.Registry = radiator.NewRegistry()
	}
	if d.History == nil {
		d.History = status.NewHistory(status.DefaultHistorySize, opts.Now)
	}

	c := &Controller{
		opts:     opts,
		cfg:      d.Config,
		pub:      d.Publisher,
		registry: d.Registry,
		history:  d.History,
		tracker:  d.Tracker,
		relay:    d.Relay,
		metrics:  d.Metrics,
	}
	c.sched = NewScheduler(
		Task{Name: "refresh", Interval: opts.RefreshInterval, Run: c.Refresh},
		Task{Name: "update", Interval: opts.UpdateInterval, Run: func() { c.Update() }},
	)
	return c
}

// Registry returns the radiator registry.
func (c *Controller) Registry() *radiator.Registry {
	return c.registry
}

// History returns the status history.
func (c *Controller) History() *status.History {
	return c.history
}

// Start broadcasts a refresh, runs one update cycle and arms both periodic
// cycles.
func (c *Controller) Start() error {
	log.Printf("controller: starting (update=%v refresh=%v stale=%v)",
		c.opts.UpdateInterval, c.opts.RefreshInterval, c.opts.StaleThreshold)
	return c.sched.Start()
}

// Stop cancels both cycles and waits for any in-flight cycle. Idempotent.
func (c *Controller) Stop() {
	c.sched.Stop()
}

// State returns the scheduler state.
func (c *Controller) State() State {
	return c.sched.State()
}

// HandleMessage admits one inbound message. Messages that are not device
// state or fail to parse are dropped without side effects. Implausible
// readings are rejected and the device is sent a safe setpoint.
func (c *Controller) HandleMessage(topic string, payload []byte) {
	name, ok := mqtt.DeviceFromTopic(c.opts.Namespace, topic)
	if !ok {
		return
	}

	r, err := radiator.Parse(name, payload, c.cfg.TemperatureConstant(), c.opts.Now())
	if err != nil {
		c.metrics.Message(metrics.ResultMalformed)
		return
	}

	c.cfg.Observe(name)

	if !radiator.Validate(r) {
		log.Printf("fault: %s reports %.1f°C (outside %.0f-%.0f°C), restoring setpoint %.1f°C",
			name, r.Temperature, radiator.MinTemperature, radiator.MaxTemperature, c.opts.SafeSetpoint)
		if c.tracker != nil {
			c.tracker.RecordFault()
		}
		c.metrics.Message(metrics.ResultFault)
		c.remediate(name)
		return
	}

	c.registry.Upsert(r)
	c.metrics.Message(metrics.ResultAccepted)
}

func (c *Controller) remediate(name string) {
	payload, err := mqtt.FormatSetpointCommand(c.opts.SafeSetpoint)
	if err != nil {
		log.Printf("fault: format setpoint command: %v", err)
		return
	}
	c.publish(mqtt.CommandTopic(c.opts.Namespace, name), payload)
}

// Update evicts stale readings, computes heat demand, publishes it to the
// switch, mirrors it on the relay and records the outcome.
func (c *Controller) Update() heating.Demand {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	now := c.opts.Now()
	evicted := c.registry.EvictStale(now, c.opts.StaleThreshold)
	if evicted > 0 {
		log.Printf("update: evicted %d stale radiator(s)", evicted)
	}

	readings := c.registry.Snapshot()
	demand := heating.Compute(readings, c.cfg.Snapshot())

	payload, err := mqtt.FormatSwitchCommand(demand.On, c.opts.Countdown)
	if err != nil {
		log.Printf("update: format switch command: %v", err)
	} else {
		c.publish(mqtt.CommandTopic(c.opts.Namespace, c.opts.SwitchName), payload)
	}

	if c.relay != nil {
		if err := c.relay.Set(demand.On); err != nil {
			log.Printf("update: relay: %v", err)
		}
	}

	c.history.Record(status.FormatText(readings, demand))
	if c.tracker != nil {
		c.tracker.Update(now, readings, demand)
	}
	c.metrics.ObserveCycle(readings, demand, evicted)

	log.Printf("update: demand=%s total=%.0fW required=%.0fW radiators=%d",
		demand.State(), demand.TotalPower, demand.PowerRequired, len(readings))
	return demand
}

// Refresh sends the keep-alive command to every radiator currently known.
func (c *Controller) Refresh() {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	payload, err := mqtt.FormatRefreshCommand()
	if err != nil {
		log.Printf("refresh: format command: %v", err)
		return
	}
	names := c.registry.Names()
	for _, name := range names {
		c.publish(mqtt.CommandTopic(c.opts.Namespace, name), payload)
	}
	log.Printf("refresh: sent to %d radiator(s)", len(names))
}

// SwitchOff stops the cycles and sends a final OFF to the switch and relay.
// Used on shutdown so the boiler does not keep running until the countdown
// expires.
func (c *Controller) SwitchOff() {
	c.Stop()

	payload, err := mqtt.FormatSwitchCommand(false, c.opts.Countdown)
	if err == nil {
		c.publish(mqtt.CommandTopic(c.opts.Namespace, c.opts.SwitchName), payload)
	}
	if c.relay != nil {
		if err := c.relay.Set(false); err != nil {
			log.Printf("shutdown: relay: %v", err)
		}
	}
}

func (c *Controller) publish(topic string, payload []byte) {
	if err := c.pub.Publish(topic, payload); err != nil {
		log.Printf("publish error: %v", err)
		c.metrics.PublishError()
	}
}
