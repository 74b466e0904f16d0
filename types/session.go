package types

// Phase of the controller session.
type Phase string

const (
	PhaseBoot       Phase = "boot"
	PhaseMenu       Phase = "menu"
	PhaseProvision  Phase = "provision"
	PhaseAwaitReady Phase = "await_ready"
	PhaseCountdown  Phase = "countdown"
	PhaseActive     Phase = "active"
	PhaseEnded      Phase = "ended"
)

// Outcome of a session. Set once, terminal.
type Outcome string

const (
	OutcomeUndetermined Outcome = "undetermined"
	OutcomeSuccess      Outcome = "success"
	OutcomeFailure      Outcome = "failure"
)

// EndReason tags why a session ended.
type EndReason string

const (
	ReasonNone    EndReason = ""
	ReasonSolved  EndReason = "solved"
	ReasonLives   EndReason = "lives"
	ReasonTimeout EndReason = "time"
)

// SessionView is the retained snapshot published on game/session.
type SessionView struct {
	Phase          Phase   `json:"phase"`
	LivesRemaining int     `json:"lives"`
	TimeRemaining  int     `json:"time"`
	MistakeTrace   []int   `json:"mistakes"`
	Solved         int     `json:"solved"`
	Peers          int     `json:"peers"`
	Outcome        Outcome `json:"outcome"`
	TSms           int64   `json:"ts_ms"`
}

// PeerView is one row of the address->line table.
type PeerView struct {
	ID     int    `json:"id"`
	Addr   uint16 `json:"addr"`
	Line   int    `json:"line"`
	Type   string `json:"type"`
	Needy  bool   `json:"needy"`
	Ready  bool   `json:"ready"`
	Solved bool   `json:"solved"`
}

// OutcomeView is the result tag shown by the display collaborator.
type OutcomeView struct {
	Outcome Outcome   `json:"outcome"`
	Reason  EndReason `json:"reason"`
	Serial  string    `json:"serial"`
}

// MenuView is what the menu display renders.
type MenuView struct {
	Cursor   int    `json:"cursor"`   // 1 lives, 2 time, 3 start
	Selected int    `json:"selected"` // 0 none
	Lives    int    `json:"lives"`
	Time     string `json:"time"` // m:ss
}

// Status is a short machine-readable controller status.
type Status struct {
	Level  string `json:"level"`
	Status string `json:"status"`
	TSms   int64  `json:"ts_ms"`
}
