package master

import (
	"defusal-go/types"
	"defusal-go/x/mathx"
	"defusal-go/x/timex"
)

// Menu rows.
const (
	RowLives = 1
	RowTime  = 2
	RowStart = 3
)

const (
	MinTime  = 60
	MaxTime  = 900
	TimeStep = 10
)

// Menu edits the session budget from rotary events.
type Menu struct {
	cursor   int
	selected int
	lives    int
	time     int
}

func NewMenu(lives, seconds int) *Menu {
	if lives != 1 {
		lives = 3
	}
	return &Menu{
		cursor: RowLives,
		lives:  lives,
		time:   mathx.Clamp(seconds-seconds%TimeStep, MinTime, MaxTime),
	}
}

// Rotate moves the cursor, or edits the selected row.
func (m *Menu) Rotate(delta int) {
	step := mathx.Sign(delta)
	if step == 0 {
		return
	}
	switch m.selected {
	case RowLives:
		if step > 0 && m.lives == 1 {
			m.lives = 3
		} else if step < 0 && m.lives == 3 {
			m.lives = 1
		}
	case RowTime:
		m.time = mathx.Clamp(m.time+step*TimeStep, MinTime, MaxTime)
	default:
		m.cursor = mathx.Clamp(m.cursor+step, RowLives, RowStart)
	}
}

// Press toggles editing of the row under the cursor. It reports true when
// START was pressed.
func (m *Menu) Press() bool {
	if m.cursor == RowStart {
		m.selected = 0
		return true
	}
	if m.selected == m.cursor {
		m.selected = 0
	} else {
		m.selected = m.cursor
	}
	return false
}

// Handle applies one input event and reports a start request.
func (m *Menu) Handle(ev types.InputEvent) bool {
	if ev.Delta != 0 {
		m.Rotate(ev.Delta)
	}
	if ev.Press {
		return m.Press()
	}
	return false
}

func (m *Menu) Lives() int { return m.lives }
func (m *Menu) Time() int  { return m.time }

func (m *Menu) View() types.MenuView {
	return types.MenuView{
		Cursor:   m.cursor,
		Selected: m.selected,
		Lives:    m.lives,
		Time:     timex.FormatClock(m.time),
	}
}
