// Package module is the peripheral end of the bus: it answers controller
// commands, raises its request line when it has something to say and keeps
// a local copy of the session budget.
package module

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"defusal-go/errcode"
	"defusal-go/hal/halcore"
	"defusal-go/protocol"
	"defusal-go/types"

	"github.com/rs/zerolog"
)

// State of a module.
type State string

const (
	StateBoot           State = "boot"
	StateAwaitProvision State = "await_provision"
	StateSetup          State = "setup"
	StateActive         State = "active"
)

type Options struct {
	Type  string
	Needy bool

	Line  halcore.GPIOPin // request line, driven by the module
	Clock halcore.IRQPin  // countdown clock, rising edge per second; optional

	SetupDelay     time.Duration // SETUP -> "ready"
	AttentionTicks int           // >0: a mistake every N ticks while active
	SolveAfter     int           // >0: solve after N active ticks
	QueueDepth     int
	MaxMessage     int

	Log zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Type:       "TEST",
		SetupDelay: 5 * time.Second,
		QueueDepth: 8,
		MaxMessage: protocol.DefaultLimits().MaxMessage,
		Log:        zerolog.Nop(),
	}
}

// Module implements platform.Target. Bus callbacks and Run share state
// under mu; the clock interrupt only bumps a counter.
type Module struct {
	opt Options
	log zerolog.Logger

	mu     sync.Mutex
	state  State
	asm    *protocol.Assembler
	reply  protocol.Responder // staged reply, served before any event
	event  protocol.Responder // head of queue being served
	queue  [][]byte
	signal bool
	level  bool

	cfg        types.GameConfig
	lives      int
	time       int
	ticks      int
	readySent  bool
	solvedSent bool
	dropped    int

	setupC  chan struct{}
	tickC   chan struct{}
	pending atomic.Int32
}

func New(opt Options) *Module {
	d := DefaultOptions()
	if opt.Type == "" {
		opt.Type = d.Type
	}
	if opt.QueueDepth <= 0 {
		opt.QueueDepth = d.QueueDepth
	}
	if opt.MaxMessage <= 0 {
		opt.MaxMessage = d.MaxMessage
	}
	if opt.SetupDelay < 0 {
		opt.SetupDelay = 0
	}
	m := &Module{
		opt:    opt,
		log:    opt.Log.With().Str("component", "module").Str("type", opt.Type).Logger(),
		state:  StateBoot,
		asm:    protocol.NewAssembler(opt.MaxMessage),
		setupC: make(chan struct{}, 1),
		tickC:  make(chan struct{}, 1),
	}
	if opt.Line != nil {
		_ = opt.Line.ConfigureOutput(false)
	}
	return m
}

// Boot finishes start-up and begins accepting provisioning.
func (m *Module) Boot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateBoot {
		m.state = StateAwaitProvision
	}
}

// -----------------------------------------------------------------------------
// Bus callbacks
// -----------------------------------------------------------------------------

// Joined reports whether the module listens on the bus. A booting module
// does not acknowledge its address.
func (m *Module) Joined() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != StateBoot
}

// OnReceive handles one controller write transfer.
func (m *Module) OnReceive(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, done, err := m.asm.Feed(p)
	if err != nil {
		if !errcode.Is(err, errcode.NoMessage) {
			m.log.Warn().Err(err).Msg("receive dropped")
		}
		return
	}
	if !done {
		return
	}
	msg, err := protocol.Decode(body)
	if err != nil {
		m.log.Warn().Err(err).Msg("malformed command")
		return
	}
	m.handle(msg)
}

func (m *Module) handle(msg protocol.Message) {
	switch msg.Action {
	case protocol.ActionPing:
	case protocol.ActionEnableSignal:
		if m.state == StateBoot {
			return
		}
		m.signal = true
		m.syncLine()
	case protocol.ActionDisableSignal:
		m.signal = false
		m.syncLine()
	case protocol.ActionIdent:
		if err := m.stageIdent(); err != nil {
			m.log.Error().Err(err).Msg("ident encode")
		}
	case protocol.ActionProvision:
		m.provision(msg)
	default:
		m.log.Debug().Str("action", msg.Action).Msg("ignored")
	}
}

func (m *Module) stageIdent() error {
	reply, err := protocol.NewMessage(protocol.ActionIdent, types.Ident{Type: m.opt.Type, Needy: m.opt.Needy})
	if err != nil {
		return err
	}
	b, err := protocol.Encode(reply)
	if err != nil {
		return err
	}
	m.reply.Load(b)
	return nil
}

func (m *Module) provision(msg protocol.Message) {
	if m.state != StateAwaitProvision {
		m.log.Warn().Str("state", string(m.state)).Msg("provision ignored")
		return
	}
	var cfg types.GameConfig
	if err := msg.Bind(&cfg); err != nil {
		m.log.Warn().Err(err).Msg("provision rejected")
		return
	}
	m.cfg = cfg
	m.lives = cfg.Lives
	m.time = cfg.Time + 1
	m.state = StateSetup
	m.log.Info().Str("serial", cfg.Serial).Int("lives", m.lives).Int("time", m.time).Msg("provisioned")
	select {
	case m.setupC <- struct{}{}:
	default:
	}
}

// OnRequest fills one controller read window.
func (m *Module) OnRequest(w []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reply.Busy() {
		m.reply.Fill(w)
		return
	}
	if !m.event.Busy() {
		if len(m.queue) == 0 {
			return // zeroed window reads as "no message"
		}
		m.event.Load(m.queue[0])
	}
	if m.event.Fill(w) {
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.syncLine()
	}
}

// syncLine drives the request line from signal and queue state. Caller holds mu.
func (m *Module) syncLine() {
	want := m.signal || len(m.queue) > 0
	if want == m.level || m.opt.Line == nil {
		m.level = want
		return
	}
	m.level = want
	m.opt.Line.Set(want)
}

// enqueue appends an event body. Caller holds mu.
func (m *Module) enqueue(action string) error {
	if len(m.queue) >= m.opt.QueueDepth {
		m.dropped++
		m.log.Warn().Str("action", action).Int("depth", len(m.queue)).Msg("event queue full; dropped")
		return errcode.New(errcode.QueueFull, "enqueue", action)
	}
	m.queue = append(m.queue, protocol.MustEncode(action))
	m.syncLine()
	return nil
}

// -----------------------------------------------------------------------------
// Game events
// -----------------------------------------------------------------------------

// Solve reports the module solved. Only the first call while active queues.
func (m *Module) Solve() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.solveLocked()
}

func (m *Module) solveLocked() error {
	if m.state != StateActive {
		return errcode.New(errcode.InvalidTransition, "solve", string(m.state))
	}
	if m.solvedSent {
		return nil
	}
	if err := m.enqueue(protocol.ActionSolved); err != nil {
		return err
	}
	m.solvedSent = true
	return nil
}

// Mistake reports a player error while active.
func (m *Module) Mistake() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mistakeLocked()
}

func (m *Module) mistakeLocked() error {
	if m.state != StateActive {
		return errcode.New(errcode.InvalidTransition, "mistake", string(m.state))
	}
	if err := m.enqueue(protocol.ActionMistake); err != nil {
		return err
	}
	if m.lives > 0 {
		m.lives--
	}
	return nil
}

// -----------------------------------------------------------------------------
// Clock and timers
// -----------------------------------------------------------------------------

// Run boots the module and services its timers until ctx ends.
func (m *Module) Run(ctx context.Context) error {
	if c := m.opt.Clock; c != nil {
		_ = c.ConfigureInput(halcore.PullDown)
		if err := c.SetIRQ(halcore.EdgeRising, m.onClockEdge); err != nil {
			return err
		}
		defer c.ClearIRQ()
	}
	m.Boot()

	var readyC <-chan time.Time
	var readyT *time.Timer
	defer func() {
		if readyT != nil {
			readyT.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.setupC:
			if readyT != nil {
				readyT.Stop()
			}
			readyT = time.NewTimer(m.opt.SetupDelay)
			readyC = readyT.C
		case <-readyC:
			readyC = nil
			m.sendReady()
		case <-m.tickC:
			for n := m.pending.Swap(0); n > 0; n-- {
				m.Tick()
			}
		}
	}
}

// onClockEdge runs in interrupt context.
func (m *Module) onClockEdge() {
	m.pending.Add(1)
	select {
	case m.tickC <- struct{}{}:
	default:
	}
}

func (m *Module) sendReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readySent || m.state != StateSetup {
		return
	}
	if err := m.enqueue(protocol.ActionReady); err != nil {
		return
	}
	m.readySent = true
	m.log.Debug().Msg("ready queued")
}

// Tick applies one clock period. The first tick after setup activates.
func (m *Module) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateSetup:
		m.state = StateActive
		m.log.Info().Msg("active")
	case StateActive:
	default:
		return
	}
	if m.time > 0 {
		m.time--
	}
	m.ticks++
	if n := m.opt.AttentionTicks; n > 0 && m.ticks%n == 0 {
		_ = m.mistakeLocked()
	}
	if n := m.opt.SolveAfter; n > 0 && m.ticks >= n && !m.solvedSent {
		_ = m.solveLocked()
	}
}

// -----------------------------------------------------------------------------
// Introspection
// -----------------------------------------------------------------------------

func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Module) Config() types.GameConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Budget returns the local lives and seconds.
func (m *Module) Budget() (lives, seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lives, m.time
}

func (m *Module) Queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Module) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Asserted reports the request line level the module is driving.
func (m *Module) Asserted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *Module) Type() string { return m.opt.Type }
