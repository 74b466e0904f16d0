package protocol

import (
	"bytes"
	"encoding/json"

	"defusal-go/errcode"
)

// Actions understood on the wire.
const (
	ActionPing          = "ping"
	ActionEnableSignal  = "erp" // assert the request line
	ActionDisableSignal = "drp" // release the request line
	ActionIdent         = "ident"
	ActionProvision     = "provision"
	ActionReady         = "ready"
	ActionSolved        = "solved"
	ActionMistake       = "mistake"
)

// Sentinel terminates every framed message.
const Sentinel byte = 0x00

// Message is the structured record carried over the bus.
type Message struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewMessage builds a message; data may be nil for event notifications.
func NewMessage(action string, data any) (Message, error) {
	m := Message{Action: action}
	if data == nil {
		return m, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Message{}, errcode.Wrap(errcode.Malformed, "new_message", err)
	}
	m.Data = b
	return m, nil
}

// Bind decodes the payload into dst.
func (m Message) Bind(dst any) error {
	if len(m.Data) == 0 {
		return errcode.New(errcode.Malformed, "bind", "empty payload for "+m.Action)
	}
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return errcode.Wrap(errcode.Malformed, "bind", err)
	}
	return nil
}

// Encode renders m as compact JSON. The result never contains the sentinel.
func Encode(m Message) ([]byte, error) {
	if m.Action == "" {
		return nil, errcode.New(errcode.Malformed, "encode", "missing action")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "encode", err)
	}
	if bytes.IndexByte(b, Sentinel) >= 0 {
		return nil, errcode.New(errcode.Malformed, "encode", "sentinel in body")
	}
	return b, nil
}

// Decode parses a framed body; a missing action is malformed.
func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, errcode.Wrap(errcode.Malformed, "decode", err)
	}
	if m.Action == "" {
		return Message{}, errcode.New(errcode.Malformed, "decode", "missing action")
	}
	if bytes.Equal(m.Data, []byte("null")) {
		m.Data = nil
	}
	return m, nil
}

// MustEncode is for fixed command messages built at init time.
func MustEncode(action string) []byte {
	b, err := Encode(Message{Action: action})
	if err != nil {
		panic(err)
	}
	return b
}
