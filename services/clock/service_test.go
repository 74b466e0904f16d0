package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"defusal-go/bus"
	"defusal-go/hal/halcore"
	"defusal-go/hal/platform"
	"defusal-go/services/topics"
	"defusal-go/types"

	"github.com/rs/zerolog"
)

func recvTick(t *testing.T, sub *bus.Subscription, d time.Duration) types.Tick {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m.Payload.(types.Tick)
	case <-time.After(d):
		t.Fatal("timeout waiting for tick")
		return types.Tick{}
	}
}

func expectNoTick(t *testing.T, sub *bus.Subscription, d time.Duration) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected tick %+v", m.Payload)
	case <-time.After(d):
	}
}

func start(t *testing.T, interval time.Duration, lines ...halcore.GPIOPin) (*bus.Connection, *bus.Subscription) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := bus.NewBus(16)
	s := &Service{Interval: interval, Lines: lines, Log: zerolog.New(zerolog.NewTestWriter(t))}
	if err := s.Start(ctx, b.NewConnection("clock")); err != nil {
		t.Fatal(err)
	}
	conn := b.NewConnection("test")
	return conn, conn.Subscribe(topics.Tick)
}

func TestClockIdleUntilStarted(t *testing.T) {
	_, ticks := start(t, 2*time.Millisecond)
	expectNoTick(t, ticks, 20*time.Millisecond)
}

func TestClockRunStop(t *testing.T) {
	conn, ticks := start(t, 2*time.Millisecond)

	conn.Publish(conn.NewMessage(topics.ClockControl, types.ClockControl{Run: true}, true))
	first := recvTick(t, ticks, time.Second)
	second := recvTick(t, ticks, time.Second)
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seq %d, %d", first.Seq, second.Seq)
	}

	conn.Publish(conn.NewMessage(topics.ClockControl, types.ClockControl{Run: false}, true))
	time.Sleep(10 * time.Millisecond)
	for len(ticks.Channel()) > 0 {
		<-ticks.Channel()
	}
	expectNoTick(t, ticks, 20*time.Millisecond)
}

func TestClockPulsesLines(t *testing.T) {
	a, b := platform.NewFakePin(2), platform.NewFakePin(2)
	var edges atomic.Int32
	for _, p := range []*platform.FakePin{a, b} {
		_ = p.SetIRQ(halcore.EdgeRising, func() { edges.Add(1) })
	}
	conn, ticks := start(t, 20*time.Millisecond, a, b)

	conn.Publish(conn.NewMessage(topics.ClockControl, types.ClockControl{Run: true}, true))
	recvTick(t, ticks, time.Second)
	if edges.Load() < 2 {
		t.Fatalf("edges = %d, want one per line", edges.Load())
	}
	if a.Get() || b.Get() {
		t.Fatal("lines must idle low between pulses")
	}
}

func TestClockIntervalChange(t *testing.T) {
	conn, ticks := start(t, time.Hour)

	conn.Publish(conn.NewMessage(topics.ClockControl, types.ClockControl{Run: true}, true))
	expectNoTick(t, ticks, 20*time.Millisecond)

	conn.Publish(conn.NewMessage(topics.ClockConfig, types.ClockConfig{IntervalMs: 2}, false))
	recvTick(t, ticks, time.Second)
}
