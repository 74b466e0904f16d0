// hal/halcore/types.go
package halcore

import (
	"errors"

	"tinygo.org/x/drivers"
)

var (
	// ErrUnknownPin is returned by factories for unconfigured pin numbers.
	ErrUnknownPin = errors.New("unknown_pin")
	// ErrUnknownBus is returned by factories for unconfigured bus ids.
	ErrUnknownBus = errors.New("unknown_bus")
)

// ---- Buses ----

// I2CBusFactory injects configured I²C instances by id.
// Uses the TinyGo drivers.I2C interface to remain compatible on MCU builds.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// I2C is the subset we need (compatible with tinygo.org/x/drivers.I2C).
// A write is Tx(addr, w, nil); a read is Tx(addr, nil, r).
type I2C interface {
	Tx(addr uint16, w, r []byte) error
}

var _ I2C = drivers.I2C(nil)

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin extends GPIOPin with interrupts. Handlers run in interrupt context
// and must not block or touch the bus.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// Pins resolves a list of pin numbers through f, preserving order.
func Pins(f PinFactory, numbers []int) ([]GPIOPin, error) {
	out := make([]GPIOPin, 0, len(numbers))
	for _, n := range numbers {
		p, ok := f.ByNumber(n)
		if !ok {
			return nil, ErrUnknownPin
		}
		out = append(out, p)
	}
	return out, nil
}
