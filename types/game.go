package types

// ---- Game configuration (wire payload of "provision") ----

// Label is one indicator label on the case.
type Label struct {
	Text string `json:"label"`
	Lit  bool   `json:"lit"`
}

// Ports counts the port accessories by kind.
type Ports struct {
	VGA  int `json:"VGA"`
	PS2  int `json:"PS2"`
	RJ45 int `json:"RJ45"`
	RCA  int `json:"RCA"`
}

func (p Ports) Total() int { return p.VGA + p.PS2 + p.RJ45 + p.RCA }

// Batteries counts the battery accessories by kind.
type Batteries struct {
	AA int `json:"AA"`
	D  int `json:"D"`
}

func (b Batteries) Total() int { return b.AA + b.D }

// GameConfig is generated once per session and broadcast to every module.
type GameConfig struct {
	Serial    string    `json:"serial"`
	Lives     int       `json:"lives"`
	Time      int       `json:"time"` // seconds
	Seed      uint64    `json:"seed"`
	Ports     Ports     `json:"ports"`
	Batteries Batteries `json:"batteries"`
	Labels    []Label   `json:"labels,omitempty"`
}

// Ident is a module's reply to "ident".
type Ident struct {
	Type  string `json:"type"`
	Needy bool   `json:"isNeedy"`
}

// ---- Collaborator payloads (pub/sub) ----

// InputEvent is one discrete rotary-encoder event.
type InputEvent struct {
	Delta int  // position change; only the sign is used
	Press bool // debounced button press
}

// Tick is published by the countdown clock once per period.
type Tick struct {
	Seq  uint64
	TSms int64
}

// ClockControl starts or stops the countdown clock.
type ClockControl struct {
	Run bool
}

// ClockConfig changes the clock period.
type ClockConfig struct {
	IntervalMs uint32
}
