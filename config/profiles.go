package config

import (
	"defusal-go/bus"
	"defusal-go/errcode"
	"defusal-go/services/topics"
	"defusal-go/types"
)

// -----------------------------------------------------------------------------
// Embedded profiles
//
// Key: profile name passed on the command line.
// Val: TOML text decoded over the defaults.
// -----------------------------------------------------------------------------

const cfgBench = `
[game]
lives = 3
time = 120
tick_ms = 250

[[module]]
address = 0x21
type = "WIRES"
line = 31
setup_ms = 500
solve_after_ticks = 12

[[module]]
address = 0x30
type = "KEYPAD"
line = 30
setup_ms = 800
solve_after_ticks = 20

[[module]]
address = 0x49
type = "TEST"
needy = true
line = 29
setup_ms = 300
attention_ticks = 15
solve_after_ticks = 25
`

const cfgHardcore = `
[game]
lives = 1
time = 60
tick_ms = 100

[[module]]
address = 0x49
type = "TEST"
needy = true
line = 24
setup_ms = 200
attention_ticks = 4
`

// ProfileLookup allows overriding how profiles are resolved.
var ProfileLookup = func(name string) (string, bool) {
	s, ok := profiles[name]
	return s, ok
}

var profiles = map[string]string{
	"bench":    cfgBench,
	"hardcore": cfgHardcore,
}

// LoadProfile decodes a named embedded profile over the defaults.
func LoadProfile(name string) (Config, error) {
	text, ok := ProfileLookup(name)
	if !ok {
		return Config{}, errcode.New(errcode.InvalidConfig, "config_profile", "no embedded profile "+name)
	}
	return Parse(text)
}

// Publish pushes the runtime-adjustable settings onto the bus as retained
// messages.
func (c Config) Publish(conn *bus.Connection) {
	conn.Publish(conn.NewMessage(topics.ClockConfig, types.ClockConfig{IntervalMs: uint32(c.Game.TickMs)}, true))
}
