package master

import (
	"defusal-go/protocol"
	"defusal-go/types"
	"defusal-go/x/conv"

	"github.com/rs/zerolog"
)

// ProvisionMessage wraps the configuration in a single "provision" message.
func ProvisionMessage(cfg types.GameConfig) (protocol.Message, error) {
	return protocol.NewMessage(protocol.ActionProvision, cfg)
}

// Provision encodes cfg once and sends it to every bound peer in discovery
// order. Per-peer failures are logged; no acknowledgement is awaited.
func Provision(codec *protocol.Codec, reg *Registry, cfg types.GameConfig, log zerolog.Logger) (int, error) {
	m, err := ProvisionMessage(cfg)
	if err != nil {
		return 0, err
	}
	body, err := protocol.Encode(m)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, p := range reg.Peers() {
		if err := codec.SendRaw(p.Addr, body); err != nil {
			log.Warn().Err(err).Str("addr", conv.Addr(p.Addr)).Msg("provision failed")
			continue
		}
		sent++
	}
	log.Info().Int("sent", sent).Int("peers", reg.Len()).Int("bytes", len(body)).Msg("provisioned")
	return sent, nil
}
