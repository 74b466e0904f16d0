// services/master/internal/sigirq/notifier.go
package sigirq

import (
	"sync"
	"sync/atomic"

	"defusal-go/hal/halcore"
)

// Notifier is the pending-scan flag shared between interrupt handlers and the
// controller loop. Producers never block; the loop is the only consumer.
type Notifier struct {
	// Written by ISR; MUST NOT block the ISR:
	pending chan struct{}

	mu    sync.Mutex
	armed map[int]halcore.IRQPin // line number -> pin

	edges     atomic.Uint32
	coalesced atomic.Uint32
}

func New() *Notifier {
	return &Notifier{
		pending: make(chan struct{}, 1),
		armed:   map[int]halcore.IRQPin{},
	}
}

// Pending fires once per set of the flag. Receiving clears it.
func (n *Notifier) Pending() <-chan struct{} { return n.pending }

// Request sets the flag without an edge (unconditional check).
func (n *Notifier) Request() { n.set() }

func (n *Notifier) set() {
	select {
	case n.pending <- struct{}{}:
	default:
		// already set; the next pass covers this edge too
		n.coalesced.Add(1)
	}
}

// Arm registers a rising-edge handler on line. Re-arming a line replaces it.
func (n *Notifier) Arm(line halcore.IRQPin) error {
	handler := func() {
		n.edges.Add(1)
		n.set()
	}
	if err := line.SetIRQ(halcore.EdgeRising, handler); err != nil {
		return err
	}
	n.mu.Lock()
	n.armed[line.Number()] = line
	n.mu.Unlock()
	return nil
}

// DisarmAll clears every registered handler.
func (n *Notifier) DisarmAll() {
	n.mu.Lock()
	lines := n.armed
	n.armed = map[int]halcore.IRQPin{}
	n.mu.Unlock()
	for _, p := range lines {
		_ = p.ClearIRQ()
	}
}

// Armed reports how many lines have handlers.
func (n *Notifier) Armed() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.armed)
}

// Edges is the number of interrupt deliveries observed.
func (n *Notifier) Edges() uint32 { return n.edges.Load() }

// Coalesced counts sets that found the flag already raised.
func (n *Notifier) Coalesced() uint32 { return n.coalesced.Load() }
