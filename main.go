package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"defusal-go/bus"
	"defusal-go/config"
	"defusal-go/hal/halcore"
	"defusal-go/hal/platform"
	"defusal-go/logging"
	"defusal-go/services/clock"
	"defusal-go/services/display"
	"defusal-go/services/master"
	"defusal-go/services/module"
	"defusal-go/services/topics"
	"defusal-go/types"
	"defusal-go/x/conv"
	"defusal-go/x/timex"
)

func main() {
	cfgPath := flag.String("config", "", "TOML config file (defaults when empty)")
	profile := flag.String("profile", "", "embedded profile (bench, hardcore); overrides -config")
	auto := flag.Bool("auto", true, "press START from the menu automatically")
	flag.Parse()

	var cfg config.Config
	var err error
	if *profile != "" {
		cfg, err = config.LoadProfile(*profile)
	} else {
		cfg, err = config.Load(*cfgPath)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logging.Configure(logging.ProfileRuntime, cfg.Log.Level)
	log := logging.Component("sim")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b := bus.NewBus(16)
	i2c := platform.NewSimI2C()
	pins := platform.NewPinFactory()

	pool := make([]halcore.IRQPin, 0, len(cfg.Signal.Pool))
	for _, n := range cfg.Signal.Pool {
		pool = append(pool, pins.Pin(n))
	}

	mods := cfg.Modules
	if len(mods) == 0 {
		mods = defaultModules(cfg)
	}
	var clockLines []halcore.GPIOPin
	for _, mc := range mods {
		// Each module gets its own end of the shared clock wire.
		clk := platform.NewFakePin(cfg.Signal.Clock)
		clockLines = append(clockLines, clk)
		m := module.New(module.Options{
			Type:           mc.Type,
			Needy:          mc.Needy,
			Line:           pins.Pin(mc.Line),
			Clock:          clk,
			SetupDelay:     timex.Ms(mc.SetupMs),
			AttentionTicks: mc.AttentionTicks,
			SolveAfter:     mc.SolveAfterTicks,
			Log:            logging.Component("module").With().Str("addr", conv.Addr(mc.Address)).Logger(),
		})
		i2c.Attach(mc.Address, m)
		go func() { _ = m.Run(ctx) }()
	}
	log.Info().Int("modules", len(mods)).Ints("pool", cfg.Signal.Pool).Msg("simulated bus ready")

	clk := &clock.Service{Lines: clockLines, Log: logging.Component("clock")}
	if err := clk.Start(ctx, b.NewConnection("clock")); err != nil {
		log.Fatal().Err(err).Msg("clock start")
	}
	cfg.Publish(b.NewConnection("config"))

	disp := display.New(b.NewConnection("display"), nil)
	go disp.Run(ctx)

	ctl := master.New(b.NewConnection("master"), i2c, pool, cfg.MasterSettings(logging.Component("master")))
	if *auto {
		go pressStart(ctx, b.NewConnection("input"))
	}

	if err := ctl.Run(ctx); err != nil {
		log.Error().Err(err).Msg("controller stopped")
		os.Exit(1)
	}
	v := ctl.View()
	st := i2c.Stats()
	log.Info().
		Str("outcome", string(v.Outcome)).
		Int("writes", st.Writes).
		Int("reads", st.Reads).
		Int("nacks", st.Nacks).
		Msg("done")
	time.Sleep(50 * time.Millisecond) // let the display flush the outcome
}

// pressStart plays the rotary encoder: move the cursor to START and press.
func pressStart(ctx context.Context, conn *bus.Connection) {
	events := []types.InputEvent{{Delta: 1}, {Delta: 1}, {Press: true}}
	for _, ev := range events {
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
		conn.Publish(conn.NewMessage(topics.Input, ev, false))
	}
}

// defaultModules is the bench setup used when the config lists none.
func defaultModules(cfg config.Config) []config.ModuleConfig {
	pool := cfg.Signal.Pool
	out := []config.ModuleConfig{
		{Address: 0x21, Type: "WIRES", SetupMs: 500, SolveAfterTicks: 4},
		{Address: 0x30, Type: "KEYPAD", SetupMs: 800, SolveAfterTicks: 7},
		{Address: 0x49, Type: "TEST", Needy: true, SetupMs: 300, AttentionTicks: 5, SolveAfterTicks: 9},
	}
	for i := range out {
		out[i].Line = pool[(len(pool)-1-i)%len(pool)]
	}
	return out
}
