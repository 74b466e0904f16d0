// hal/platform/factories_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"errors"
	"sync"

	"defusal-go/hal/halcore"

	"tinygo.org/x/drivers"
)

// ----------------------------- I²C (host) ------------------------------------

// ErrNack is returned when no target acknowledges the address.
var ErrNack = errors.New("i2c: address not acknowledged")

// Target is the peripheral end of a simulated I²C link. OnReceive gets the
// bytes of one controller write; OnRequest fills one controller read window
// (pre-zeroed). Both run in the controller's goroutine, as target callbacks do.
type Target interface {
	OnReceive(p []byte)
	OnRequest(p []byte)
}

// Joiner is implemented by targets that are attached before they listen on
// the bus. While Joined reports false the address is not acknowledged.
type Joiner interface {
	Joined() bool
}

// SimI2C is a host-side multi-drop bus implementing drivers.I2C.
type SimI2C struct {
	mu      sync.RWMutex
	targets map[uint16]Target

	txMu  sync.Mutex
	stats TxStats
}

// TxStats counts transfers for diagnostics and tests.
type TxStats struct {
	Writes int
	Reads  int
	Nacks  int
}

func NewSimI2C() *SimI2C {
	return &SimI2C{targets: map[uint16]Target{}}
}

// Attach places t at addr, replacing any previous target.
func (b *SimI2C) Attach(addr uint16, t Target) {
	b.mu.Lock()
	b.targets[addr] = t
	b.mu.Unlock()
}

// Detach removes the target at addr.
func (b *SimI2C) Detach(addr uint16) {
	b.mu.Lock()
	delete(b.targets, addr)
	b.mu.Unlock()
}

func (b *SimI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.RLock()
	t := b.targets[addr]
	b.mu.RUnlock()

	b.txMu.Lock()
	defer b.txMu.Unlock()
	if t == nil {
		b.stats.Nacks++
		return ErrNack
	}
	if j, ok := t.(Joiner); ok && !j.Joined() {
		b.stats.Nacks++
		return ErrNack
	}
	if len(w) > 0 {
		b.stats.Writes++
		t.OnReceive(append([]byte(nil), w...))
	}
	if len(r) > 0 {
		b.stats.Reads++
		clear(r)
		t.OnRequest(r)
	}
	return nil
}

// Stats returns a copy of the transfer counters.
func (b *SimI2C) Stats() TxStats {
	b.txMu.Lock()
	defer b.txMu.Unlock()
	return b.stats
}

type hostI2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *hostI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// NewI2CFactory exposes the given simulated buses by id.
func NewI2CFactory(buses map[string]*SimI2C) halcore.I2CBusFactory {
	f := &hostI2CFactory{buses: map[string]drivers.I2C{}}
	for id, b := range buses {
		f.buses[id] = b
	}
	return f
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements GPIOPin and IRQPin for host-side runs. The same instance
// stands for both ends of a wire: a module drives it, the controller samples it.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	irqEdge halcore.Edge
	irqFunc func()
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureInput(_ halcore.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.mu.Unlock()
	p.Set(initial)
	return nil
}

// Set drives the level and fires the IRQ callback on a matching edge.
func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) SetIRQ(edge halcore.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = halcore.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// Pulse drives a full low-high-low cycle.
func (p *FakePin) Pulse() {
	p.Set(false)
	p.Set(true)
	p.Set(false)
}

func edgeFrom(old, new bool) halcore.Edge {
	switch {
	case !old && new:
		return halcore.EdgeRising
	case old && !new:
		return halcore.EdgeFalling
	default:
		return halcore.EdgeNone
	}
}

func irqWanted(cfg, seen halcore.Edge) bool {
	switch cfg {
	case halcore.EdgeNone:
		return false
	case halcore.EdgeBoth:
		return seen == halcore.EdgeRising || seen == halcore.EdgeFalling
	default:
		return cfg == seen
	}
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewPinFactory() *HostPinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin)}
}

func (f *HostPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	return f.Pin(n), true
}

// Pin returns the concrete *FakePin for n, creating it on first use.
func (f *HostPinFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p
}
