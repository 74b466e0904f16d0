package display

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"defusal-go/bus"
	"defusal-go/services/topics"
	"defusal-go/types"
)

func TestDisplayRendersUntilOutcome(t *testing.T) {
	b := bus.NewBus(16)
	pub := b.NewConnection("master")
	var out bytes.Buffer
	d := New(b.NewConnection("display"), &out)

	pub.Publish(pub.NewMessage(topics.Peers, []types.PeerView{{ID: 0, Addr: 0x21, Line: 31, Type: "WIRES"}}, true))
	pub.Publish(pub.NewMessage(topics.Session, types.SessionView{
		Phase: types.PhaseActive, LivesRemaining: 2, TimeRemaining: 95, MistakeTrace: []int{0}, Peers: 1,
	}, true))
	pub.Publish(pub.NewMessage(topics.Outcome, types.OutcomeView{
		Outcome: types.OutcomeSuccess, Reason: types.ReasonSolved, Serial: "AB12CD34",
	}, true))

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("display did not stop after the outcome")
	}

	text := out.String()
	for _, want := range []string{"0x21", "WIRES", "1:35", "DEFUSED", "AB12CD34"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestDisplayStopsOnCancel(t *testing.T) {
	b := bus.NewBus(4)
	d := New(b.NewConnection("display"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)
}
