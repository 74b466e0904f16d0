package platform

import (
	"errors"
	"testing"

	"defusal-go/hal/halcore"
)

type recTarget struct {
	writes [][]byte
	fill   byte
}

func (r *recTarget) OnReceive(p []byte) { r.writes = append(r.writes, p) }
func (r *recTarget) OnRequest(p []byte) {
	for i := range p {
		p[i] = r.fill
	}
}

func TestSimI2CRoutesAndNacks(t *testing.T) {
	b := NewSimI2C()
	tg := &recTarget{fill: 'x'}
	b.Attach(0x20, tg)

	if err := b.Tx(0x21, []byte("hi"), nil); !errors.Is(err, ErrNack) {
		t.Fatalf("absent address: got %v, want ErrNack", err)
	}
	if err := b.Tx(0x20, []byte("hi"), nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := make([]byte, 3)
	if err := b.Tx(0x20, nil, r); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(r) != "xxx" {
		t.Fatalf("read window = %q", r)
	}
	if len(tg.writes) != 1 || string(tg.writes[0]) != "hi" {
		t.Fatalf("writes = %q", tg.writes)
	}
	st := b.Stats()
	if st.Writes != 1 || st.Reads != 1 || st.Nacks != 1 {
		t.Fatalf("stats = %+v", st)
	}

	b.Detach(0x20)
	if err := b.Tx(0x20, []byte{0}, nil); !errors.Is(err, ErrNack) {
		t.Fatalf("after detach: %v", err)
	}
}

type lateTarget struct {
	recTarget
	joined bool
}

func (l *lateTarget) Joined() bool { return l.joined }

func TestSimI2CNacksUntilJoined(t *testing.T) {
	b := NewSimI2C()
	tg := &lateTarget{}
	b.Attach(0x30, tg)

	if err := b.Tx(0x30, []byte("ping"), nil); !errors.Is(err, ErrNack) {
		t.Fatalf("before join: got %v, want ErrNack", err)
	}
	if len(tg.writes) != 0 {
		t.Fatal("a target that has not joined must not see writes")
	}
	tg.joined = true
	if err := b.Tx(0x30, []byte("ping"), nil); err != nil {
		t.Fatalf("after join: %v", err)
	}
	if st := b.Stats(); st.Nacks != 1 || st.Writes != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSimI2CFactory(t *testing.T) {
	b := NewSimI2C()
	f := NewI2CFactory(map[string]*SimI2C{"i2c0": b})
	if got, ok := f.ByID("i2c0"); !ok || got == nil {
		t.Fatal("i2c0 missing")
	}
	if _, ok := f.ByID("i2c1"); ok {
		t.Fatal("i2c1 should be absent")
	}
}

func TestFakePinIRQEdges(t *testing.T) {
	p := NewFakePin(24)
	var rising, both int
	_ = p.SetIRQ(halcore.EdgeRising, func() { rising++ })

	p.Set(true)
	p.Set(true) // no edge
	p.Set(false)
	p.Pulse()
	if rising != 2 {
		t.Fatalf("rising edges = %d, want 2", rising)
	}

	_ = p.SetIRQ(halcore.EdgeBoth, func() { both++ })
	p.Pulse()
	if both != 2 {
		t.Fatalf("both edges = %d, want 2", both)
	}

	_ = p.ClearIRQ()
	p.Pulse()
	if both != 2 {
		t.Fatal("handler fired after ClearIRQ")
	}
}

func TestHostPinFactoryStable(t *testing.T) {
	f := NewPinFactory()
	a, _ := f.ByNumber(25)
	b, _ := f.ByNumber(25)
	if a != b {
		t.Fatal("expected the same pin instance")
	}
	pins, err := halcore.Pins(f, []int{24, 25})
	if err != nil || len(pins) != 2 || pins[1].Number() != 25 {
		t.Fatalf("Pins = %v, %v", pins, err)
	}
}
