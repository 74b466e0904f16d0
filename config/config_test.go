package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"defusal-go/bus"
	"defusal-go/errcode"
	"defusal-go/services/topics"
	"defusal-go/types"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, text string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "defusal.toml")
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFileAndMasterSettings(t *testing.T) {
	p := writeFile(t, `
[bus]
addr_start = 0x08
addr_end = 0x40
signal_settle_ms = 5

[signal]
pool = [10, 11]
clock = 3

[game]
lives = 1
time = 90
seed = 77

[[module]]
address = 0x20
type = "WIRES"
line = 11
solve_after_ticks = 4
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Modules) != 1 || cfg.Modules[0].Type != "WIRES" || cfg.Modules[0].Line != 11 {
		t.Fatalf("modules = %+v", cfg.Modules)
	}

	s := cfg.MasterSettings(zerolog.Nop())
	if s.AddrStart != 0x08 || s.AddrEnd != 0x40 || s.Lives != 1 || s.TimeSeconds != 90 || s.Seed != 77 {
		t.Fatalf("settings = %+v", s)
	}
	if s.SignalSettle != 5*time.Millisecond || s.ReleaseSettle != 50*time.Millisecond {
		t.Fatalf("settles = %v / %v", s.SignalSettle, s.ReleaseSettle)
	}
	if s.Limits.WriteChunk != 32 || s.Limits.ReadWindow != 6 || s.Limits.MaxMessage != 512 {
		t.Fatalf("limits = %+v", s.Limits)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "[game]\nlives = 3\ntime = 300\n")
	t.Setenv("DEFUSAL_LIVES", "1")
	t.Setenv("DEFUSAL_POOL", "40,41,42")
	t.Setenv("DEFUSAL_SEED", "12345")

	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Game.Lives != 1 || cfg.Game.TimeSeconds != 300 || cfg.Game.Seed != 12345 {
		t.Fatalf("game = %+v", cfg.Game)
	}
	if len(cfg.Signal.Pool) != 3 || cfg.Signal.Pool[2] != 42 {
		t.Fatalf("pool = %v", cfg.Signal.Pool)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Game.Lives != 3 || cfg.Game.TimeSeconds != 480 {
		t.Fatalf("game = %+v", cfg.Game)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	p := writeFile(t, "[game]\nlifes = 3\n")
	if _, err := Load(p); !errcode.Is(err, errcode.InvalidConfig) {
		t.Fatalf("want invalid_config, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"lives", func(c *Config) { c.Game.Lives = 2 }},
		{"time low", func(c *Config) { c.Game.TimeSeconds = 50 }},
		{"time step", func(c *Config) { c.Game.TimeSeconds = 125 }},
		{"time high", func(c *Config) { c.Game.TimeSeconds = 910 }},
		{"range", func(c *Config) { c.Bus.AddrStart, c.Bus.AddrEnd = 0x50, 0x10 }},
		{"range high", func(c *Config) { c.Bus.AddrEnd = 0x80 }},
		{"window", func(c *Config) { c.Bus.ReadWindow = 0 }},
		{"empty pool", func(c *Config) { c.Signal.Pool = nil }},
		{"dup pool", func(c *Config) { c.Signal.Pool = []int{1, 1} }},
		{"clock in pool", func(c *Config) { c.Signal.Clock = c.Signal.Pool[0] }},
		{"tick", func(c *Config) { c.Game.TickMs = 0 }},
		{"module line", func(c *Config) { c.Modules = []ModuleConfig{{Address: 0x10, Line: 99}} }},
		{"module addr", func(c *Config) {
			c.Modules = []ModuleConfig{{Address: 0x10, Line: 24}, {Address: 0x10, Line: 25}}
		}},
		{"module shared line", func(c *Config) {
			c.Modules = []ModuleConfig{{Address: 0x10, Line: 24}, {Address: 0x11, Line: 24}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mut(&c)
			if err := c.Validate(); !errcode.Is(err, errcode.InvalidConfig) {
				t.Fatalf("want invalid_config, got %v", err)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	for _, name := range []string{"bench", "hardcore"} {
		cfg, err := LoadProfile(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(cfg.Modules) == 0 {
			t.Fatalf("%s: no modules", name)
		}
	}
	if _, err := LoadProfile("missing"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestProfileLookupOverride(t *testing.T) {
	old := ProfileLookup
	ProfileLookup = func(name string) (string, bool) {
		return "[game]\nlives = 1\ntime = 60\n", name == "tiny"
	}
	t.Cleanup(func() { ProfileLookup = old })

	cfg, err := LoadProfile("tiny")
	if err != nil || cfg.Game.Lives != 1 {
		t.Fatalf("cfg=%+v err=%v", cfg.Game, err)
	}
}

func TestPublishClockConfigRetained(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test")
	cfg := Default()
	cfg.Game.TickMs = 250
	cfg.Publish(conn)

	sub := conn.Subscribe(topics.ClockConfig)
	select {
	case m := <-sub.Channel():
		if got := m.Payload.(types.ClockConfig); got.IntervalMs != 250 {
			t.Fatalf("interval = %d", got.IntervalMs)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no retained clock config")
	}
}
