package master

import (
	"time"

	"defusal-go/protocol"

	"github.com/rs/zerolog"
)

// Settings centralises controller timings and limits.
type Settings struct {
	AddrStart uint16
	AddrEnd   uint16

	Limits        protocol.Limits
	SignalSettle  time.Duration // after "erp", before sampling the pool
	ReleaseSettle time.Duration // after "drp", before the next address

	ReadyPoll       time.Duration // unconditional pass period while awaiting readiness
	CountdownFrom   int
	CountdownStep   time.Duration
	MaxDrainPerPeer int

	Lives       int // 1 or 3
	TimeSeconds int
	Seed        uint64 // 0 derives one from the clock

	Log zerolog.Logger
}

func DefaultSettings() Settings {
	return Settings{
		AddrStart:       0x00,
		AddrEnd:         0x7F,
		Limits:          protocol.DefaultLimits(),
		SignalSettle:    25 * time.Millisecond,
		ReleaseSettle:   50 * time.Millisecond,
		ReadyPoll:       50 * time.Millisecond,
		CountdownFrom:   3,
		CountdownStep:   time.Second,
		MaxDrainPerPeer: 4,
		Lives:           3,
		TimeSeconds:     480,
		Log:             zerolog.Nop(),
	}
}

// withDefaults fills zero fields that would stall or break the loop.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.AddrEnd == 0 && s.AddrStart == 0 {
		s.AddrEnd = d.AddrEnd
	}
	if s.ReadyPoll <= 0 {
		s.ReadyPoll = d.ReadyPoll
	}
	if s.CountdownFrom < 0 {
		s.CountdownFrom = 0
	}
	if s.MaxDrainPerPeer <= 0 {
		s.MaxDrainPerPeer = d.MaxDrainPerPeer
	}
	if s.Lives <= 0 {
		s.Lives = d.Lives
	}
	if s.TimeSeconds <= 0 {
		s.TimeSeconds = d.TimeSeconds
	}
	return s
}
