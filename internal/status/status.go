// Package status keeps the controller's observable state: the latest control
// snapshot and a bounded history of formatted snapshots.
// It is designed to be read by HTTP handlers while the control cycles write.
package status

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Xevi8X/central-heating-controller/internal/heating"
	"github.com/Xevi8X/central-heating-controller/internal/radiator"
)

// Config contains controller configuration for display.
type Config struct {
	Broker          string
	Namespace       string
	SwitchName      string
	HTTPAddr        string
	UpdateInterval  time.Duration
	RefreshInterval time.Duration
	StaleThreshold  time.Duration
}

// Snapshot is a point-in-time view of controller state.
// It is a value type; Radiators is a private copy.
type Snapshot struct {
	StartTime     time.Time
	Now           time.Time
	LastUpdate    time.Time // zero until the first update cycle
	Radiators     []radiator.Reading
	Demand        heating.Demand
	Cycles        int
	Faults        int
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of an update cycle.
func (t *Tracker) Update(at time.Time, readings []radiator.Reading, demand heating.Demand) {
	rs := make([]radiator.Reading, len(readings))
	copy(rs, readings)

	t.mu.Lock()
	t.snap.LastUpdate = at
	t.snap.Radiators = rs
	t.snap.Demand = demand
	t.snap.Cycles++
	t.mu.Unlock()
}

// RecordFault counts a rejected reading.
func (t *Tracker) RecordFault() {
	t.mu.Lock()
	t.snap.Faults++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Radiators = make([]radiator.Reading, len(t.snap.Radiators))
	copy(s.Radiators, t.snap.Radiators)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// FormatText renders one update cycle as the multi-line text stored in the
// history.
func FormatText(readings []radiator.Reading, demand heating.Demand) string {
	var b strings.Builder
	b.WriteString("Radiator status:\n")
	for _, r := range readings {
		b.WriteString("    ")
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Total power: %.0fW (required %.0fW)\n", demand.TotalPower, demand.PowerRequired)
	fmt.Fprintf(&b, "Heat demand: %s", strings.ToLower(demand.State()))
	return b.String()
}
