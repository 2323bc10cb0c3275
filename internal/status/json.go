package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Demand        string         `json:"demand"`
	TotalPower    float64        `json:"total_power_w"`
	PowerRequired float64        `json:"power_required_w"`
	Ready         bool           `json:"ready"`
	Cycles        int            `json:"cycles"`
	Faults        int            `json:"faults"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	LastUpdate    string         `json:"last_update,omitempty"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Radiators     []RadiatorJSON `json:"radiators"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// RadiatorJSON is the JSON representation of a radiator reading.
type RadiatorJSON struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	Setpoint    float64 `json:"setpoint"`
	Position    int     `json:"position"`
	LastUpdated string  `json:"last_updated"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	Namespace        string `json:"namespace"`
	SwitchName       string `json:"switch"`
	UpdateIntervalS  int64  `json:"update_interval_s"`
	RefreshIntervalS int64  `json:"refresh_interval_s"`
	StaleThresholdS  int64  `json:"stale_threshold_s"`
	HTTPAddr         string `json:"http_addr"`
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	inner := StatusInner{
		Demand:        "UNKNOWN",
		TotalPower:    snap.Demand.TotalPower,
		PowerRequired: snap.Demand.PowerRequired,
		Ready:         !snap.LastUpdate.IsZero(),
		Cycles:        snap.Cycles,
		Faults:        snap.Faults,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Radiators:     make([]RadiatorJSON, 0, len(snap.Radiators)),
		Config: ConfigJSON{
			Namespace:        snap.Config.Namespace,
			SwitchName:       snap.Config.SwitchName,
			UpdateIntervalS:  int64(snap.Config.UpdateInterval.Seconds()),
			RefreshIntervalS: int64(snap.Config.RefreshInterval.Seconds()),
			StaleThresholdS:  int64(snap.Config.StaleThreshold.Seconds()),
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}
	if inner.Ready {
		inner.Demand = snap.Demand.State()
		inner.LastUpdate = snap.LastUpdate.UTC().Format(time.RFC3339)
	}

	for _, r := range snap.Radiators {
		inner.Radiators = append(inner.Radiators, RadiatorJSON{
			Name:        r.Name,
			Temperature: r.Temperature,
			Setpoint:    r.Setpoint,
			Position:    r.Position,
			LastUpdated: r.LastUpdated.UTC().Format(time.RFC3339),
		})
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
