package master

import (
	"context"
	"encoding/json"
	"time"

	"defusal-go/errcode"
	"defusal-go/hal/halcore"
	"defusal-go/protocol"
	"defusal-go/types"
	"defusal-go/x/conv"

	"github.com/rs/zerolog"
)

// Discovery scans the address range and binds each responding module to the
// request line it asserts. Only one module is ever asked to signal at a time.
type Discovery struct {
	codec *protocol.Codec
	pool  []halcore.GPIOPin

	start, end    uint16
	signalSettle  time.Duration
	releaseSettle time.Duration

	sleep func(time.Duration)
	log   zerolog.Logger
}

func NewDiscovery(codec *protocol.Codec, pool []halcore.GPIOPin, s Settings) *Discovery {
	for _, p := range pool {
		_ = p.ConfigureInput(halcore.PullDown)
	}
	return &Discovery{
		codec:         codec,
		pool:          pool,
		start:         s.AddrStart,
		end:           s.AddrEnd,
		signalSettle:  s.SignalSettle,
		releaseSettle: s.ReleaseSettle,
		sleep:         time.Sleep,
		log:           s.Log.With().Str("component", "discovery").Logger(),
	}
}

// Run probes every address in ascending order and returns the number of
// peers bound by this run. Only context cancellation aborts the scan.
func (d *Discovery) Run(ctx context.Context, reg *Registry) (int, error) {
	d.log.Info().
		Uint16("from", d.start).
		Uint16("to", d.end).
		Int("lines", len(d.pool)).
		Msg("starting scan")

	bound := 0
	for addr := uint32(d.start); addr <= uint32(d.end); addr++ {
		if err := ctx.Err(); err != nil {
			return bound, err
		}
		if d.probe(uint16(addr), reg) {
			bound++
		}
	}

	d.log.Info().Int("found", reg.Len()).Msg("scan complete")
	for _, p := range reg.Peers() {
		d.log.Info().
			Int("peer", int(p.ID)).
			Str("addr", conv.Addr(p.Addr)).
			Int("line", p.Line.Number()).
			Str("type", p.Type).
			Bool("needy", p.Needy).
			Msg("active module")
	}
	return bound, nil
}

func (d *Discovery) probe(addr uint16, reg *Registry) bool {
	if err := d.codec.Send(addr, protocol.Message{Action: protocol.ActionPing}); err != nil {
		return false // absent
	}
	log := d.log.With().Str("addr", conv.Addr(addr)).Logger()

	if err := d.codec.Send(addr, protocol.Message{Action: protocol.ActionEnableSignal}); err != nil {
		log.Debug().Err(err).Msg("erp failed")
		return false
	}
	d.pause(d.signalSettle)
	line := d.claimLine(reg)

	if err := d.codec.Send(addr, protocol.Message{Action: protocol.ActionDisableSignal}); err != nil {
		log.Warn().Err(err).Msg("drp failed")
	}
	d.pause(d.releaseSettle)

	if line == nil {
		log.Debug().Err(errcode.Capacity).Msg("no free line asserted; module dropped")
		return false
	}

	id, err := d.identify(addr)
	if err != nil {
		log.Warn().Err(err).Msg("ident failed; module skipped")
		return false
	}
	if _, err := reg.Bind(addr, line, id); err != nil {
		log.Warn().Err(err).Msg("bind failed")
		return false
	}
	log.Debug().Int("line", line.Number()).Msg("bound")
	return true
}

// claimLine samples the pool in order and returns the first asserted line
// not already bound.
func (d *Discovery) claimLine(reg *Registry) halcore.GPIOPin {
	for _, p := range d.pool {
		if reg.LineBound(p.Number()) {
			continue
		}
		if p.Get() {
			return p
		}
	}
	return nil
}

// identReply accepts the ident fields nested under data or flat beside the
// action, which is how the ArduinoJson module firmware sends them.
type identReply struct {
	Action string       `json:"action"`
	Data   *types.Ident `json:"data"`
	types.Ident
}

func (d *Discovery) identify(addr uint16) (types.Ident, error) {
	if err := d.codec.Send(addr, protocol.Message{Action: protocol.ActionIdent}); err != nil {
		return types.Ident{}, err
	}
	raw, err := d.codec.ReceiveRaw(addr)
	if err != nil {
		return types.Ident{}, err
	}
	var r identReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return types.Ident{}, errcode.Wrap(errcode.Malformed, "ident", err)
	}
	if r.Action != protocol.ActionIdent {
		return types.Ident{}, errcode.New(errcode.Malformed, "ident", "unexpected action "+r.Action)
	}
	if r.Data != nil {
		return *r.Data, nil
	}
	if r.Type == "" {
		return types.Ident{}, errcode.New(errcode.Malformed, "ident", "reply carries no module type")
	}
	return r.Ident, nil
}

func (d *Discovery) pause(dur time.Duration) {
	if dur > 0 {
		d.sleep(dur)
	}
}
