//go:build rp2040 || rp2350

// Command defusal-pico is the controller firmware for a Raspberry Pi Pico.
// It scans i2c0 for modules, runs the session and mirrors game topics to the
// serial console.
package main

import (
	"context"
	"runtime"
	"time"

	"defusal-go/bus"
	"defusal-go/hal/halcore"
	"defusal-go/hal/platform"
	"defusal-go/services/clock"
	"defusal-go/services/master"
	"defusal-go/services/topics"
	"defusal-go/types"
	"defusal-go/x/conv"
)

const (
	clockPin = 2
	startPin = 15
)

var poolPins = []int{16, 17, 18, 19, 20, 21, 22, 26}

func printTopic(prefix string, m *bus.Message) {
	print(prefix, " ", m.Topic.String())
	switch v := m.Payload.(type) {
	case int:
		var buf [20]byte
		print(" ", string(conv.Itoa(buf[:], int64(v))))
	case types.Status:
		print(" ", v.Status)
	case types.OutcomeView:
		print(" ", string(v.Outcome), " ", string(v.Reason))
	}
	println()
}

func main() {
	time.Sleep(2 * time.Second)
	ctx := context.Background()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)

	i2cs := platform.DefaultI2CFactory()
	i2c, ok := i2cs.ByID(platform.ControllerBus)
	if !ok {
		println("[main] no controller bus")
		return
	}
	pins := platform.DefaultPinFactory()
	pool, err := pins.IRQPins(poolPins)
	if err != nil {
		println("[main] signal pool:", err.Error())
		return
	}
	clk, _ := pins.ByNumber(clockPin)

	mon := b.NewConnection("console")
	sub := mon.Subscribe(bus.T(topics.TokGame, "#"))
	go func() {
		for m := range sub.Channel() {
			printTopic("[game]", m)
		}
	}()

	ticker := &clock.Service{Lines: []halcore.GPIOPin{clk}}
	if err := ticker.Start(ctx, b.NewConnection("clock")); err != nil {
		println("[main] clock:", err.Error())
		return
	}

	if btn, ok := pins.IRQ(startPin); ok {
		armStart(btn, b.NewConnection("input"))
	}

	ctl := master.New(b.NewConnection("master"), i2c, pool, master.DefaultSettings())
	for {
		println("[main] waiting for START …")
		if err := ctl.Run(ctx); err != nil {
			println("[main] controller:", err.Error())
		}
		printMem()
		time.Sleep(5 * time.Second)
		ctl = master.New(b.NewConnection("master"), i2c, pool, master.DefaultSettings())
	}
}

// armStart turns a press on the start button into the encoder sequence that
// moves the cursor to START and presses it. The IRQ handler only signals; the
// publish happens on a goroutine.
func armStart(btn halcore.IRQPin, conn *bus.Connection) {
	_ = btn.ConfigureInput(halcore.PullUp)
	pressed := make(chan struct{}, 1)
	_ = btn.SetIRQ(halcore.EdgeFalling, func() {
		select {
		case pressed <- struct{}{}:
		default:
		}
	})
	go func() {
		for range pressed {
			for _, ev := range []types.InputEvent{{Delta: 1}, {Delta: 1}, {Press: true}} {
				conn.Publish(conn.NewMessage(topics.Input, ev, false))
			}
		}
	}()
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
