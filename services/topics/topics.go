// Package topics names the pub/sub topics shared by the controller, the
// countdown clock and the display/input collaborators.
package topics

import "defusal-go/bus"

// Tokens
const (
	TokGame    = "game"
	TokMenu    = "menu"
	TokClock   = "clock"
	TokInput   = "input"
	TokConfig  = "config"
	TokControl = "control"
)

var (
	// Inputs to the controller.
	Input = bus.T(TokInput, "rotary") // types.InputEvent
	Tick  = bus.T(TokClock, "tick")   // types.Tick

	// Clock control.
	ClockControl = bus.T(TokClock, TokControl) // types.ClockControl (retained)
	ClockConfig  = bus.T(TokConfig, TokClock)  // types.ClockConfig

	// Display (retained unless noted).
	Session   = bus.T(TokGame, "session")   // types.SessionView
	Peers     = bus.T(TokGame, "peers")     // []types.PeerView
	Countdown = bus.T(TokGame, "countdown") // int, not retained
	Outcome   = bus.T(TokGame, "outcome")   // types.OutcomeView
	Status    = bus.T(TokGame, "status")    // types.Status
	MenuView  = bus.T(TokMenu, "view")      // types.MenuView
)
