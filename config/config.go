// Package config loads the controller and simulator settings: built-in
// defaults, then a TOML file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"defusal-go/errcode"
	"defusal-go/protocol"
	"defusal-go/services/master"
	"defusal-go/x/mathx"
	"defusal-go/x/timex"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

const EnvPrefix = "DEFUSAL_"

type Config struct {
	Bus     BusConfig      `toml:"bus"`
	Signal  SignalConfig   `toml:"signal"`
	Game    GameConfig     `toml:"game"`
	Modules []ModuleConfig `toml:"module"`
	Log     LogConfig      `toml:"log"`
}

type BusConfig struct {
	AddrStart       uint16 `toml:"addr_start"`
	AddrEnd         uint16 `toml:"addr_end"`
	WriteChunk      int    `toml:"write_chunk"`
	ReadWindow      int    `toml:"read_window"`
	MaxMessage      int    `toml:"max_message"`
	ChunkSettleMs   int64  `toml:"chunk_settle_ms"`
	SignalSettleMs  int64  `toml:"signal_settle_ms"`
	ReleaseSettleMs int64  `toml:"release_settle_ms"`
	MaxDrainPerPeer int    `toml:"max_drain_per_peer"`
}

type SignalConfig struct {
	Pool  []int `toml:"pool"`
	Clock int   `toml:"clock"`
}

type GameConfig struct {
	Lives           int    `toml:"lives"`
	TimeSeconds     int    `toml:"time"`
	CountdownFrom   int    `toml:"countdown"`
	CountdownStepMs int64  `toml:"countdown_step_ms"`
	ReadyPollMs     int64  `toml:"ready_poll_ms"`
	TickMs          int64  `toml:"tick_ms"`
	Seed            uint64 `toml:"seed"`
}

// ModuleConfig describes one simulated module.
type ModuleConfig struct {
	Address         uint16 `toml:"address"`
	Type            string `toml:"type"`
	Needy           bool   `toml:"needy"`
	Line            int    `toml:"line"`
	SetupMs         int64  `toml:"setup_ms"`
	AttentionTicks  int    `toml:"attention_ticks"`
	SolveAfterTicks int    `toml:"solve_after_ticks"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// envOverrides carries the scalar settings that may be overridden from the
// environment. Fields keep their file values when a variable is unset.
type envOverrides struct {
	AddrStart uint16 `env:"ADDR_START"`
	AddrEnd   uint16 `env:"ADDR_END"`
	Pool      []int  `env:"POOL" envSeparator:","`
	Lives     int    `env:"LIVES"`
	Time      int    `env:"TIME"`
	TickMs    int64  `env:"TICK_MS"`
	Seed      uint64 `env:"SEED"`
	LogLevel  string `env:"LOG_LEVEL"`
}

func Default() Config {
	lim := protocol.DefaultLimits()
	return Config{
		Bus: BusConfig{
			AddrStart:       0x00,
			AddrEnd:         0x7F,
			WriteChunk:      lim.WriteChunk,
			ReadWindow:      lim.ReadWindow,
			MaxMessage:      lim.MaxMessage,
			ChunkSettleMs:   lim.ChunkSettle.Milliseconds(),
			SignalSettleMs:  25,
			ReleaseSettleMs: 50,
			MaxDrainPerPeer: 4,
		},
		Signal: SignalConfig{
			Pool:  []int{24, 25, 26, 27, 28, 29, 30, 31},
			Clock: 2,
		},
		Game: GameConfig{
			Lives:           3,
			TimeSeconds:     480,
			CountdownFrom:   3,
			CountdownStepMs: 1000,
			ReadyPollMs:     50,
			TickMs:          1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (optional; empty means defaults only), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults. Environment is not consulted.
func Parse(text string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidConfig, "config_parse", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errcode.Wrap(errcode.InvalidConfig, "config_parse", fmt.Errorf("%s: %w", path, err))
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return errcode.New(errcode.InvalidConfig, "config_parse", "unknown key "+keys[0].String())
	}
	return nil
}

func applyEnv(cfg *Config) error {
	ov := envOverrides{
		AddrStart: cfg.Bus.AddrStart,
		AddrEnd:   cfg.Bus.AddrEnd,
		Pool:      cfg.Signal.Pool,
		Lives:     cfg.Game.Lives,
		Time:      cfg.Game.TimeSeconds,
		TickMs:    cfg.Game.TickMs,
		Seed:      cfg.Game.Seed,
		LogLevel:  cfg.Log.Level,
	}
	if err := env.ParseWithOptions(&ov, env.Options{Prefix: EnvPrefix}); err != nil {
		return errcode.Wrap(errcode.InvalidConfig, "config_env", err)
	}
	cfg.Bus.AddrStart = ov.AddrStart
	cfg.Bus.AddrEnd = ov.AddrEnd
	cfg.Signal.Pool = ov.Pool
	cfg.Game.Lives = ov.Lives
	cfg.Game.TimeSeconds = ov.Time
	cfg.Game.TickMs = ov.TickMs
	cfg.Game.Seed = ov.Seed
	cfg.Log.Level = ov.LogLevel
	return nil
}

func invalid(format string, args ...any) error {
	return errcode.New(errcode.InvalidConfig, "config_validate", fmt.Sprintf(format, args...))
}

// Validate checks ranges and cross references.
func (c Config) Validate() error {
	b := c.Bus
	if b.AddrStart > b.AddrEnd || b.AddrEnd > 0x7F {
		return invalid("address range 0x%02X..0x%02X", b.AddrStart, b.AddrEnd)
	}
	if b.WriteChunk < 1 || b.ReadWindow < 1 || b.MaxMessage < 1 {
		return invalid("chunk, window and max message must be positive")
	}
	if b.ChunkSettleMs < 0 || b.SignalSettleMs < 0 || b.ReleaseSettleMs < 0 {
		return invalid("settle delays must not be negative")
	}

	if len(c.Signal.Pool) == 0 {
		return invalid("signal pool is empty")
	}
	pool := map[int]bool{}
	for _, n := range c.Signal.Pool {
		if pool[n] {
			return invalid("pin %d listed twice in pool", n)
		}
		pool[n] = true
	}
	if pool[c.Signal.Clock] {
		return invalid("clock pin %d is also a signal line", c.Signal.Clock)
	}

	g := c.Game
	if g.Lives != 1 && g.Lives != 3 {
		return invalid("lives must be 1 or 3, got %d", g.Lives)
	}
	if !mathx.Between(g.TimeSeconds, master.MinTime, master.MaxTime) || g.TimeSeconds%master.TimeStep != 0 {
		return invalid("time must be %d..%d in steps of %d, got %d",
			master.MinTime, master.MaxTime, master.TimeStep, g.TimeSeconds)
	}
	if g.CountdownFrom < 0 || g.CountdownStepMs < 0 {
		return invalid("countdown must not be negative")
	}
	if g.ReadyPollMs <= 0 || g.TickMs <= 0 {
		return invalid("ready poll and tick periods must be positive")
	}

	addrs := map[uint16]bool{}
	lines := map[int]bool{}
	for i, m := range c.Modules {
		if m.Address < b.AddrStart || m.Address > b.AddrEnd {
			return invalid("module[%d] address 0x%02X outside scan range", i, m.Address)
		}
		if addrs[m.Address] {
			return invalid("module[%d] address 0x%02X used twice", i, m.Address)
		}
		addrs[m.Address] = true
		if !pool[m.Line] {
			return invalid("module[%d] line %d not in pool", i, m.Line)
		}
		if lines[m.Line] {
			return invalid("module[%d] line %d used twice", i, m.Line)
		}
		lines[m.Line] = true
		if m.SetupMs < 0 || m.AttentionTicks < 0 || m.SolveAfterTicks < 0 {
			return invalid("module[%d] timings must not be negative", i)
		}
	}
	return nil
}

// MasterSettings maps the file layout onto controller settings.
func (c Config) MasterSettings(log zerolog.Logger) master.Settings {
	return master.Settings{
		AddrStart: c.Bus.AddrStart,
		AddrEnd:   c.Bus.AddrEnd,
		Limits: protocol.Limits{
			WriteChunk:  c.Bus.WriteChunk,
			ReadWindow:  c.Bus.ReadWindow,
			MaxMessage:  c.Bus.MaxMessage,
			ChunkSettle: timex.Ms(c.Bus.ChunkSettleMs),
		},
		SignalSettle:    timex.Ms(c.Bus.SignalSettleMs),
		ReleaseSettle:   timex.Ms(c.Bus.ReleaseSettleMs),
		ReadyPoll:       timex.Ms(c.Game.ReadyPollMs),
		CountdownFrom:   c.Game.CountdownFrom,
		CountdownStep:   timex.Ms(c.Game.CountdownStepMs),
		MaxDrainPerPeer: c.Bus.MaxDrainPerPeer,
		Lives:           c.Game.Lives,
		TimeSeconds:     c.Game.TimeSeconds,
		Seed:            c.Game.Seed,
		Log:             log,
	}
}
