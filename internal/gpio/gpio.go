// Package gpio provides GPIO output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Line is a single digital output.
type Line interface {
	// SetLevel drives the line high (true) or low (false).
	SetLevel(high bool) error

	// Close releases the line.
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinStep = 17 // stepper driver STEP
	DefaultPinDir  = 16 // stepper driver DIR
)

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"
