package master

import (
	"testing"

	"defusal-go/types"
)

func TestMenuEditsLivesAndTime(t *testing.T) {
	m := NewMenu(3, 480)

	// Lives row: select, edit, release. Clockwise raises, counter-clockwise lowers.
	m.Press()
	for _, c := range []struct {
		delta, want int
	}{{1, 3}, {-1, 1}, {-5, 1}, {1, 3}, {3, 3}} {
		m.Rotate(c.delta)
		if m.Lives() != c.want {
			t.Fatalf("rotate %d: lives = %d, want %d", c.delta, m.Lives(), c.want)
		}
	}
	m.Press()

	// Time row.
	m.Rotate(1)
	m.Press()
	m.Rotate(1)
	m.Rotate(1)
	if m.Time() != 500 {
		t.Fatalf("time = %d", m.Time())
	}
	m.Press()

	if v := m.View(); v.Cursor != RowTime || v.Selected != 0 || v.Time != "8:20" {
		t.Fatalf("view = %+v", v)
	}
}

func TestMenuTimeClamped(t *testing.T) {
	m := NewMenu(3, 70)
	m.Rotate(1)
	m.Press()
	for range 5 {
		m.Rotate(-1)
	}
	if m.Time() != MinTime {
		t.Fatalf("time = %d", m.Time())
	}
	for range 200 {
		m.Rotate(1)
	}
	if m.Time() != MaxTime {
		t.Fatalf("time = %d", m.Time())
	}
}

func TestMenuCursorClampedAndStart(t *testing.T) {
	m := NewMenu(1, 120)
	m.Rotate(-1)
	if m.View().Cursor != RowLives {
		t.Fatal("cursor below first row")
	}
	for range 5 {
		m.Rotate(1)
	}
	if m.View().Cursor != RowStart {
		t.Fatal("cursor past START")
	}
	if !m.Handle(types.InputEvent{Press: true}) {
		t.Fatal("press on START should request start")
	}
	if m.Handle(types.InputEvent{Delta: 0}) {
		t.Fatal("empty event must not start")
	}
}

func TestNewMenuNormalises(t *testing.T) {
	m := NewMenu(2, 1000)
	if m.Lives() != 3 || m.Time() != MaxTime {
		t.Fatalf("lives=%d time=%d", m.Lives(), m.Time())
	}
}
