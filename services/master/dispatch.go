package master

import (
	"defusal-go/errcode"
	"defusal-go/protocol"
	"defusal-go/x/conv"

	"github.com/rs/zerolog"
)

// Dispatcher drains pending peer messages and routes them into the game.
type Dispatcher struct {
	codec    *protocol.Codec
	reg      *Registry
	game     *Game
	maxDrain int
	log      zerolog.Logger

	// routed counts messages handed to the game, by action.
	routed map[string]int
	// dropped counts receive failures and unknown actions.
	dropped int
}

func NewDispatcher(codec *protocol.Codec, reg *Registry, game *Game, maxDrain int, log zerolog.Logger) *Dispatcher {
	if maxDrain <= 0 {
		maxDrain = DefaultSettings().MaxDrainPerPeer
	}
	return &Dispatcher{
		codec:    codec,
		reg:      reg,
		game:     game,
		maxDrain: maxDrain,
		log:      log.With().Str("component", "dispatch").Logger(),
		routed:   map[string]int{},
	}
}

// Pass visits every peer in discovery order. It returns the number of
// messages routed and whether another pass is due: a peer that routed
// messages hit the drain limit with its line still asserted. A line that
// stays asserted without yielding a message waits for its next edge.
func (d *Dispatcher) Pass() (handled int, more bool) {
	for _, p := range d.reg.Peers() {
		if d.game.Ended() {
			return handled, false
		}
		taken, routed := 0, 0
		for taken < d.maxDrain && p.Line.Get() {
			taken++
			ok, err := d.drainOne(p)
			if ok {
				routed++
			}
			if d.game.Ended() {
				return handled + routed, false
			}
			if errcode.Is(err, errcode.NoMessage) {
				break
			}
		}
		handled += routed
		if routed > 0 && taken == d.maxDrain && p.Line.Get() {
			more = true
		}
	}
	return handled, more
}

func (d *Dispatcher) drainOne(p *Peer) (bool, error) {
	m, err := d.codec.Receive(p.Addr)
	if err != nil {
		d.dropped++
		ev := d.log.Debug()
		if errcode.IsFraming(err) && !errcode.Is(err, errcode.NoMessage) {
			ev = d.log.Warn()
		}
		ev.Err(err).Str("addr", conv.Addr(p.Addr)).Msg("receive failed")
		return false, err
	}

	switch m.Action {
	case protocol.ActionSolved:
		if d.reg.MarkSolved(p.ID) {
			d.log.Info().Int("peer", int(p.ID)).Str("type", p.Type).Msg("module solved")
		}
		d.game.CheckSolved()
	case protocol.ActionMistake:
		d.game.Mistake(p.ID)
		d.log.Info().
			Int("peer", int(p.ID)).
			Str("type", p.Type).
			Int("lives", d.game.LivesRemaining()).
			Msg("mistake")
	case protocol.ActionReady:
		d.reg.MarkReady(p.ID)
		d.log.Debug().Int("peer", int(p.ID)).Msg("module ready")
	default:
		d.dropped++
		d.log.Warn().Str("action", m.Action).Str("addr", conv.Addr(p.Addr)).Msg("unknown action dropped")
		return false, nil
	}
	d.routed[m.Action]++
	return true, nil
}

// Routed returns how many messages of action were routed so far.
func (d *Dispatcher) Routed(action string) int { return d.routed[action] }

// Dropped returns how many receives were discarded.
func (d *Dispatcher) Dropped() int { return d.dropped }
