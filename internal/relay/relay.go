// Package relay drives a local relay output that mirrors heat demand.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package relay

// Switch drives a single on/off output.
type Switch interface {
	// Set energizes (on) or releases (off) the relay.
	Set(on bool) error

	// Close releases the output, leaving the relay off.
	Close() error
}

// DefaultChip is the GPIO chip used on a Raspberry Pi.
const DefaultChip = "gpiochip0"
