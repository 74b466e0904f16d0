package master

import (
	"testing"
	"time"

	"defusal-go/hal/halcore"
	"defusal-go/hal/platform"
	"defusal-go/protocol"
	"defusal-go/services/module"
	"defusal-go/types"

	"github.com/rs/zerolog"
)

// rig is a simulated bus with a pool of request lines.
type rig struct {
	i2c   *platform.SimI2C
	pool  []*platform.FakePin
	codec *protocol.Codec
	mods  map[uint16]*module.Module
	log   zerolog.Logger
}

func newRig(t *testing.T, lines ...int) *rig {
	t.Helper()
	log := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	r := &rig{
		i2c:  platform.NewSimI2C(),
		mods: map[uint16]*module.Module{},
		log:  log,
	}
	for _, n := range lines {
		r.pool = append(r.pool, platform.NewFakePin(n))
	}
	r.codec = protocol.NewCodec(r.i2c, fastLimits(), log)
	return r
}

func fastLimits() protocol.Limits {
	lim := protocol.DefaultLimits()
	lim.ChunkSettle = 0
	return lim
}

func testSettings(t *testing.T) Settings {
	s := DefaultSettings()
	s.Limits = fastLimits()
	s.SignalSettle = 0
	s.ReleaseSettle = 0
	s.ReadyPoll = 5 * time.Millisecond
	s.CountdownFrom = 0
	s.CountdownStep = 0
	s.Seed = 42
	s.Log = zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return s
}

func (r *rig) gpio() []halcore.GPIOPin {
	out := make([]halcore.GPIOPin, len(r.pool))
	for i, p := range r.pool {
		out[i] = p
	}
	return out
}

func (r *rig) irq() []halcore.IRQPin {
	out := make([]halcore.IRQPin, len(r.pool))
	for i, p := range r.pool {
		out[i] = p
	}
	return out
}

// attach boots a module on addr driving line.
func (r *rig) attach(addr uint16, line halcore.GPIOPin, typ string) *module.Module {
	m := module.New(module.Options{
		Type:  typ,
		Line:  line,
		Log:   r.log,
		Needy: typ == "NEEDY",
	})
	m.Boot()
	r.i2c.Attach(addr, m)
	r.mods[addr] = m
	return m
}

func (r *rig) discover(t *testing.T, reg *Registry) int {
	t.Helper()
	s := testSettings(t)
	n, err := NewDiscovery(r.codec, r.gpio(), s).Run(t.Context(), reg)
	if err != nil {
		t.Fatalf("discovery: %v", err)
	}
	return n
}

// activeGame walks a game to ACTIVE with the given budget.
func activeGame(t *testing.T, reg *Registry, lives, seconds int) *Game {
	t.Helper()
	g := NewGame(reg)
	for _, p := range []types.Phase{types.PhaseMenu, types.PhaseProvision} {
		if err := g.Advance(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Configure(types.GameConfig{Serial: "TEST0001", Lives: lives, Time: seconds}); err != nil {
		t.Fatal(err)
	}
	for _, p := range []types.Phase{types.PhaseAwaitReady, types.PhaseCountdown, types.PhaseActive} {
		if err := g.Advance(p); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

// provisionAndStart provisions every bound module and delivers the first
// clock tick so they are ACTIVE.
func (r *rig) provisionAndStart(t *testing.T, reg *Registry, lives, seconds int) {
	t.Helper()
	cfg := GenerateConfig(7, lives, seconds)
	if n, err := Provision(r.codec, reg, cfg, r.log); err != nil || n != reg.Len() {
		t.Fatalf("provision sent=%d err=%v", n, err)
	}
	for _, p := range reg.Peers() {
		m := r.mods[p.Addr]
		if m.State() != module.StateSetup {
			t.Fatalf("module 0x%02X state = %s", p.Addr, m.State())
		}
		m.Tick()
	}
}

// scripted is a bus target replaying canned replies. It releases its line
// once the last reply is served; with repeat set it never does.
type scripted struct {
	line    *platform.FakePin
	replies [][]byte
	repeat  bool
	cur     protocol.Responder
	writes  int
}

func (s *scripted) OnReceive(p []byte) { s.writes++ }

func (s *scripted) OnRequest(w []byte) {
	if !s.cur.Busy() {
		if len(s.replies) == 0 {
			return
		}
		s.cur.Load(s.replies[0])
		if !s.repeat {
			s.replies = s.replies[1:]
		}
	}
	if s.cur.Fill(w) && !s.repeat && len(s.replies) == 0 {
		s.line.Set(false)
	}
}
