// Package mqtt provides the pub/sub transport with abstraction for testing:
// topic routing for inbound valve telemetry and the outbound command payloads.
package mqtt

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultNamespace is the root topic the valves and the switch live under.
const DefaultNamespace = "zigbee2mqtt"

// BridgeDevice is the namespace's own service topic; it is not a device.
const BridgeDevice = "bridge"

// Publisher publishes raw payloads to the broker.
type Publisher interface {
	// Publish sends payload to topic. While disconnected this is a no-op
	// returning nil. Other failures return an error and must not crash
	// the caller.
	Publish(topic string, payload []byte) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Client is a connected transport.
type Client interface {
	Publisher
	ConnectionStatus

	// Close disconnects from the broker.
	Close() error
}

// MessageHandler receives inbound messages. Calls are sequential.
type MessageHandler func(topic string, payload []byte)

// SubscribeTopic returns the wildcard filter covering every device.
func SubscribeTopic(namespace string) string {
	return namespace + "/#"
}

// CommandTopic returns the topic a device accepts commands on.
func CommandTopic(namespace, device string) string {
	return namespace + "/" + device + "/set"
}

// DeviceFromTopic extracts the device name from a state topic of the form
// <namespace>/<device>. Command topics, nested topics, other namespaces and
// the bridge are rejected.
func DeviceFromTopic(namespace, topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 2 || parts[0] != namespace {
		return "", false
	}
	if parts[1] == "" || parts[1] == BridgeDevice {
		return "", false
	}
	return parts[1], true
}

// SwitchCommand turns the boiler switch on or off. Countdown makes the
// switch revert to off on its own if the controller goes silent.
type SwitchCommand struct {
	State     string `json:"state"`
	Countdown int    `json:"countdown"`
}

// SetpointCommand overrides a valve's heating setpoint.
type SetpointCommand struct {
	CurrentHeatingSetpoint string `json:"current_heating_setpoint"`
}

// ChildLockCommand is the periodic keep-alive sent to every valve.
type ChildLockCommand struct {
	ChildLock string `json:"child_lock"`
}

// FormatSwitchCommand creates the demand payload for the boiler switch.
func FormatSwitchCommand(on bool, countdown time.Duration) ([]byte, error) {
	cmd := SwitchCommand{State: "OFF", Countdown: int(countdown.Seconds())}
	if on {
		cmd.State = "ON"
	}
	return json.Marshal(cmd)
}

// FormatSetpointCommand creates the remediation payload restoring a safe
// setpoint. The value is sent as a string.
func FormatSetpointCommand(setpoint float64) ([]byte, error) {
	return json.Marshal(SetpointCommand{
		CurrentHeatingSetpoint: strconv.FormatFloat(setpoint, 'f', -1, 64),
	})
}

// FormatRefreshCommand creates the keep-alive payload.
func FormatRefreshCommand() ([]byte, error) {
	return json.Marshal(ChildLockCommand{ChildLock: "UNLOCK"})
}
