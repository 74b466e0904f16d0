// services/master/service.go
package master

import (
	"context"
	"time"

	"defusal-go/bus"
	"defusal-go/hal/halcore"
	"defusal-go/protocol"
	"defusal-go/services/master/internal/sigirq"
	"defusal-go/services/topics"
	"defusal-go/types"
	"defusal-go/x/timex"

	"github.com/rs/zerolog"
)

// Service is the controller. One goroutine (Run) owns the registry, the game,
// the menu and every bus transfer.
type Service struct {
	conn *bus.Connection
	set  Settings
	log  zerolog.Logger

	codec *protocol.Codec
	pool  []halcore.IRQPin
	irq   *sigirq.Notifier

	reg  *Registry
	game *Game
	menu *Menu
	disc *Discovery
	disp *Dispatcher

	// nil unless awaiting readiness
	pollC <-chan time.Time
	poll  *time.Ticker
}

// New wires a controller to a bus transport and its request-line pool.
func New(conn *bus.Connection, i2c halcore.I2C, pool []halcore.IRQPin, set Settings) *Service {
	set = set.withDefaults()
	log := set.Log.With().Str("component", "master").Logger()

	lines := make([]halcore.GPIOPin, len(pool))
	for i, p := range pool {
		lines[i] = p
	}

	codec := protocol.NewCodec(i2c, set.Limits, set.Log.With().Str("component", "codec").Logger())
	reg := NewRegistry()
	game := NewGame(reg)
	return &Service{
		conn:  conn,
		set:   set,
		log:   log,
		codec: codec,
		pool:  pool,
		irq:   sigirq.New(),
		reg:   reg,
		game:  game,
		menu:  NewMenu(set.Lives, set.TimeSeconds),
		disc:  NewDiscovery(codec, lines, set),
		disp:  NewDispatcher(codec, reg, game, set.MaxDrainPerPeer, set.Log),
	}
}

func (s *Service) Game() *Game         { return s.game }
func (s *Service) Registry() *Registry { return s.reg }

// Run drives one session from the menu to its outcome. It returns nil once
// the session has ended, or the context error on shutdown.
func (s *Service) Run(ctx context.Context) error {
	inSub := s.conn.Subscribe(topics.Input)
	tickSub := s.conn.Subscribe(topics.Tick)
	defer s.conn.Unsubscribe(inSub)
	defer s.conn.Unsubscribe(tickSub)
	defer s.stopPoll()

	if err := s.game.Advance(types.PhaseMenu); err != nil {
		return err
	}
	s.publishMenu()
	s.publishSession()
	s.publishStatus("info", "menu")

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()

		case msg := <-inSub.Channel():
			ev, ok := msg.Payload.(types.InputEvent)
			if !ok || s.game.Phase() != types.PhaseMenu {
				continue
			}
			start := s.menu.Handle(ev)
			s.publishMenu()
			if !start {
				continue
			}
			if err := s.startSession(ctx); err != nil {
				s.shutdown()
				return err
			}

		case msg := <-tickSub.Channel():
			if _, ok := msg.Payload.(types.Tick); !ok {
				continue
			}
			if s.game.Phase() != types.PhaseActive {
				continue
			}
			s.game.Tick()
			s.publishSession()
			if s.game.Ended() {
				s.finish()
				return nil
			}

		case <-s.pollC:
			s.irq.Request()

		case <-s.irq.Pending():
			if err := s.pass(ctx); err != nil {
				s.shutdown()
				return err
			}
			if s.game.Ended() {
				s.finish()
				return nil
			}
		}
	}
}

// pass runs one dispatch pass and any phase change it unlocks.
func (s *Service) pass(ctx context.Context) error {
	switch s.game.Phase() {
	case types.PhaseAwaitReady, types.PhaseActive:
	default:
		return nil
	}
	handled, more := s.disp.Pass()
	if more && !s.game.Ended() {
		s.irq.Request()
	}
	if handled > 0 {
		s.publishPeers()
		s.publishSession()
	}
	if s.game.Phase() == types.PhaseAwaitReady && s.reg.AllReady() {
		return s.countdown(ctx)
	}
	return nil
}

func (s *Service) startSession(ctx context.Context) error {
	if err := s.game.Advance(types.PhaseProvision); err != nil {
		return err
	}
	s.publishSession()
	s.publishStatus("info", "provisioning")

	seed := s.set.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	cfg := GenerateConfig(seed, s.menu.Lives(), s.menu.Time())
	if err := s.game.Configure(cfg); err != nil {
		return err
	}
	s.log.Info().
		Str("serial", cfg.Serial).
		Int("lives", cfg.Lives).
		Int("time", cfg.Time).
		Uint64("seed", cfg.Seed).
		Msg("session configured")

	s.reg.Reset()
	n, err := s.disc.Run(ctx, s.reg)
	if err != nil {
		return err
	}
	s.publishPeers()
	if n == 0 {
		s.log.Warn().Msg("no modules found; back to menu")
		if err := s.game.Advance(types.PhaseMenu); err != nil {
			return err
		}
		s.publishSession()
		s.publishStatus("warn", "no_modules")
		s.publishMenu()
		return nil
	}

	if _, err := Provision(s.codec, s.reg, cfg, s.log); err != nil {
		return err
	}
	if err := s.game.Advance(types.PhaseAwaitReady); err != nil {
		return err
	}
	s.publishSession()
	s.publishStatus("info", "awaiting_ready")
	s.startPoll()
	s.irq.Request()
	return nil
}

// countdown runs the fixed pre-game count. Only shutdown interrupts it.
func (s *Service) countdown(ctx context.Context) error {
	s.stopPoll()
	if err := s.game.Advance(types.PhaseCountdown); err != nil {
		return err
	}
	s.publishSession()
	s.publishStatus("info", "countdown")

	for i := s.set.CountdownFrom; i > 0; i-- {
		s.conn.Publish(s.conn.NewMessage(topics.Countdown, i, false))
		if err := sleepCtx(ctx, s.set.CountdownStep); err != nil {
			return err
		}
	}
	s.conn.Publish(s.conn.NewMessage(topics.Countdown, 0, false))

	if err := s.game.Advance(types.PhaseActive); err != nil {
		return err
	}
	for _, p := range s.reg.Peers() {
		line, ok := p.Line.(halcore.IRQPin)
		if !ok {
			s.log.Warn().Int("line", p.Line.Number()).Msg("line has no interrupt; polled only")
			continue
		}
		if err := s.irq.Arm(line); err != nil {
			s.log.Warn().Err(err).Int("line", line.Number()).Msg("arm failed")
		}
	}
	s.irq.Request()
	s.conn.Publish(s.conn.NewMessage(topics.ClockControl, types.ClockControl{Run: true}, true))
	s.publishSession()
	s.publishStatus("info", "active")
	s.log.Info().Int("armed", s.irq.Armed()).Msg("session active")
	return nil
}

func (s *Service) finish() {
	s.shutdown()
	out := types.OutcomeView{
		Outcome: s.game.Outcome(),
		Reason:  s.game.Reason(),
		Serial:  s.game.Config().Serial,
	}
	s.conn.Publish(s.conn.NewMessage(topics.Outcome, out, true))
	s.publishPeers()
	s.publishSession()
	s.publishStatus("info", "ended")
	s.log.Info().
		Str("outcome", string(out.Outcome)).
		Str("reason", string(out.Reason)).
		Int("lives", s.game.LivesRemaining()).
		Int("time", s.game.TimeRemaining()).
		Ints("mistakes", s.View().MistakeTrace).
		Uint32("edges", s.irq.Edges()).
		Msg("session ended")
}

// shutdown releases interrupt handlers and stops the clock.
func (s *Service) shutdown() {
	s.stopPoll()
	s.irq.DisarmAll()
	s.conn.Publish(s.conn.NewMessage(topics.ClockControl, types.ClockControl{Run: false}, true))
}

func (s *Service) View() types.SessionView { return s.game.View() }

func (s *Service) startPoll() {
	if s.poll != nil {
		return
	}
	s.poll = time.NewTicker(s.set.ReadyPoll)
	s.pollC = s.poll.C
}

func (s *Service) stopPoll() {
	if s.poll == nil {
		return
	}
	s.poll.Stop()
	s.poll, s.pollC = nil, nil
}

// -----------------------------------------------------------------------------
// Publishing
// -----------------------------------------------------------------------------

func (s *Service) publishSession() {
	s.conn.Publish(s.conn.NewMessage(topics.Session, s.game.View(), true))
}

func (s *Service) publishPeers() {
	s.conn.Publish(s.conn.NewMessage(topics.Peers, s.reg.Table(), true))
}

func (s *Service) publishMenu() {
	s.conn.Publish(s.conn.NewMessage(topics.MenuView, s.menu.View(), true))
}

func (s *Service) publishStatus(level, status string) {
	s.conn.Publish(s.conn.NewMessage(topics.Status, types.Status{
		Level:  level,
		Status: status,
		TSms:   timex.NowMs(),
	}, true))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
