package clock

import (
	"context"
	"time"

	"defusal-go/bus"
	"defusal-go/hal/halcore"
	"defusal-go/services/topics"
	"defusal-go/types"
	"defusal-go/x/timex"

	"github.com/rs/zerolog"
)

const DefaultInterval = time.Second

// Service is the countdown timer. While running it publishes a tick each
// interval and pulses every attached clock line.
type Service struct {
	Interval time.Duration
	Lines    []halcore.GPIOPin
	Log      zerolog.Logger

	seq uint64
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, ctrlSub, cfgSub *bus.Subscription) {
	log := s.Log.With().Str("component", "clock").Logger()
	defer conn.Unsubscribe(ctrlSub)
	defer conn.Unsubscribe(cfgSub)

	for _, l := range s.Lines {
		_ = l.ConfigureOutput(false)
	}

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tick := time.NewTicker(interval)
	tick.Stop()
	running := false

	// loop until context is cancelled, respond to tick, control and config changes
	for {
		select {
		case <-ctx.Done():
			tick.Stop()
			log.Debug().Uint64("ticks", s.seq).Msg("clock stopping")
			return

		case <-tick.C:
			if !running {
				continue
			}
			s.seq++
			for _, l := range s.Lines {
				l.Set(true)
				l.Set(false)
			}
			conn.Publish(conn.NewMessage(topics.Tick, types.Tick{Seq: s.seq, TSms: timex.NowMs()}, false))

		case msg := <-ctrlSub.Channel():
			c, ok := msg.Payload.(types.ClockControl)
			if !ok || c.Run == running {
				continue
			}
			running = c.Run
			if running {
				tick.Reset(interval)
			} else {
				tick.Stop()
			}
			log.Info().Bool("run", running).Dur("interval", interval).Msg("clock control")

		case msg := <-cfgSub.Channel():
			c, ok := msg.Payload.(types.ClockConfig)
			if !ok || c.IntervalMs == 0 {
				log.Warn().Interface("payload", msg.Payload).Msg("invalid clock config")
				continue
			}
			interval = timex.Ms(c.IntervalMs)
			if running {
				tick.Reset(interval)
			}
			log.Info().Dur("interval", interval).Msg("clock interval set")
		}
	}
}

// Start subscribes before returning, so a control message published right
// after Start is never missed.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	ctrlSub := conn.Subscribe(topics.ClockControl)
	cfgSub := conn.Subscribe(topics.ClockConfig)
	go s.serviceLoop(ctx, conn, ctrlSub, cfgSub)
	return nil
}
