// hal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"tinygo.org/x/drivers"

	"defusal-go/hal/halcore"
)

// ControllerBus is the id the controller's I²C bus is registered under.
const ControllerBus = "i2c0"

// DefaultI2CFactory configures i2c0 on the board-default pins at 100 kHz.
// Module firmware answers from target callbacks, so the bus stays at
// standard mode.
func DefaultI2CFactory() halcore.I2CBusFactory {
	f := &rp2I2CFactory{buses: make(map[string]drivers.I2C)}

	b0 := machine.I2C0
	_ = b0.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	f.buses[ControllerBus] = b0
	return f
}

type rp2I2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *rp2I2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// RP2PinFactory maps GP numbers directly to machine.Pin(n).
type RP2PinFactory struct{}

func DefaultPinFactory() RP2PinFactory { return RP2PinFactory{} }

func (f RP2PinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	p, ok := f.IRQ(n)
	return p, ok
}

// IRQ returns pin n with interrupt support. Only GP0..GP28 are user pins.
func (RP2PinFactory) IRQ(n int) (halcore.IRQPin, bool) {
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

// IRQPins resolves a signal pool in order.
func (f RP2PinFactory) IRQPins(numbers []int) ([]halcore.IRQPin, error) {
	out := make([]halcore.IRQPin, 0, len(numbers))
	for _, n := range numbers {
		p, ok := f.IRQ(n)
		if !ok {
			return nil, halcore.ErrUnknownPin
		}
		out = append(out, p)
	}
	return out, nil
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull halcore.Pull) error {
	mode := machine.PinInput
	switch pull {
	case halcore.PullUp:
		mode = machine.PinInputPullup
	case halcore.PullDown:
		mode = machine.PinInputPulldown
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

func (r *rp2Pin) SetIRQ(edge halcore.Edge, handler func()) error {
	return r.p.SetInterrupt(pinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func pinChange(e halcore.Edge) machine.PinChange {
	switch e {
	case halcore.EdgeRising:
		return machine.PinRising
	case halcore.EdgeFalling:
		return machine.PinFalling
	case halcore.EdgeBoth:
		return machine.PinToggle
	}
	var zero machine.PinChange
	return zero
}
