// services/master/internal/sigirq/notifier_test.go

package sigirq

import (
	"testing"
	"time"

	"defusal-go/hal/platform"
)

func expectPending(t *testing.T, n *Notifier) {
	t.Helper()
	select {
	case <-n.Pending():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for pending flag")
	}
}

func expectIdle(t *testing.T, n *Notifier) {
	t.Helper()
	select {
	case <-n.Pending():
		t.Fatal("unexpected pending flag")
	case <-time.After(5 * time.Millisecond):
	}
}

func TestRisingEdgeSetsFlagOnce(t *testing.T) {
	n := New()
	a, b := platform.NewFakePin(24), platform.NewFakePin(25)
	if err := n.Arm(a); err != nil {
		t.Fatal(err)
	}
	if err := n.Arm(b); err != nil {
		t.Fatal(err)
	}

	a.Set(true)
	b.Set(true) // simultaneous assertion coalesces into the same flag
	expectPending(t, n)
	expectIdle(t, n)

	if n.Edges() != 2 || n.Coalesced() != 1 {
		t.Fatalf("edges=%d coalesced=%d", n.Edges(), n.Coalesced())
	}

	a.Set(false) // falling edge ignored
	expectIdle(t, n)
}

func TestRequestWithoutEdge(t *testing.T) {
	n := New()
	n.Request()
	expectPending(t, n)
	expectIdle(t, n)
}

func TestDisarmAll(t *testing.T) {
	n := New()
	p := platform.NewFakePin(26)
	_ = n.Arm(p)
	if n.Armed() != 1 {
		t.Fatalf("armed = %d", n.Armed())
	}
	n.DisarmAll()
	if n.Armed() != 0 {
		t.Fatal("expected no armed lines")
	}
	p.Set(true)
	expectIdle(t, n)
}
