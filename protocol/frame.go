package protocol

import (
	"time"

	"defusal-go/errcode"
	"defusal-go/hal/halcore"
	"defusal-go/x/mathx"

	"github.com/rs/zerolog"
)

// Limits constrains transfer shapes and buffer use on both ends of the bus.
type Limits struct {
	WriteChunk  int           // bytes per controller write transfer
	ReadWindow  int           // bytes per controller read transfer
	MaxMessage  int           // largest body accepted, sentinel excluded
	ChunkSettle time.Duration // pause between write transfers
}

func DefaultLimits() Limits {
	return Limits{
		WriteChunk:  32,
		ReadWindow:  6,
		MaxMessage:  512,
		ChunkSettle: 10 * time.Millisecond,
	}
}

func (l Limits) normalised() Limits {
	d := DefaultLimits()
	if l.WriteChunk <= 0 {
		l.WriteChunk = d.WriteChunk
	}
	if l.ReadWindow <= 0 {
		l.ReadWindow = d.ReadWindow
	}
	if l.MaxMessage <= 0 {
		l.MaxMessage = d.MaxMessage
	}
	if l.ChunkSettle < 0 {
		l.ChunkSettle = 0
	}
	return l
}

// -----------------------------------------------------------------------------
// Controller side
// -----------------------------------------------------------------------------

// Codec frames messages over an address-directed bus. It assumes a single
// caller: transfers are never interleaved.
type Codec struct {
	i2c halcore.I2C
	lim Limits
	log zerolog.Logger

	sleep func(time.Duration)
	win   []byte
	acc   []byte
}

func NewCodec(i2c halcore.I2C, lim Limits, log zerolog.Logger) *Codec {
	lim = lim.normalised()
	return &Codec{
		i2c:   i2c,
		lim:   lim,
		log:   log,
		sleep: time.Sleep,
		win:   make([]byte, lim.ReadWindow),
		acc:   make([]byte, 0, lim.MaxMessage),
	}
}

func (c *Codec) Limits() Limits { return c.lim }

// Send encodes m and writes it to addr.
func (c *Codec) Send(addr uint16, m Message) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	return c.SendRaw(addr, b)
}

// SendRaw writes an already encoded body in WriteChunk transfers, then the
// sentinel as its own transfer. The first failing transfer aborts the send.
func (c *Codec) SendRaw(addr uint16, body []byte) error {
	if len(body) > c.lim.MaxMessage {
		return errcode.New(errcode.Overflow, "send", "body exceeds max message")
	}
	for off := 0; off < len(body); off += c.lim.WriteChunk {
		end := mathx.Min(off+c.lim.WriteChunk, len(body))
		if err := c.i2c.Tx(addr, body[off:end], nil); err != nil {
			return errcode.Wrap(errcode.Absent, "send", err)
		}
		if c.lim.ChunkSettle > 0 {
			c.sleep(c.lim.ChunkSettle)
		}
	}
	if err := c.i2c.Tx(addr, []byte{Sentinel}, nil); err != nil {
		return errcode.Wrap(errcode.Absent, "send", err)
	}
	c.log.Trace().
		Uint16("addr", addr).
		Int("bytes", len(body)).
		Int("transfers", mathx.CeilDiv(len(body), c.lim.WriteChunk)+1).
		Msg("sent")
	return nil
}

// Receive pulls and decodes one message from addr.
func (c *Codec) Receive(addr uint16) (Message, error) {
	b, err := c.ReceiveRaw(addr)
	if err != nil {
		return Message{}, err
	}
	return Decode(b)
}

// ReceiveRaw reads ReadWindow-sized transfers until a sentinel is seen.
// Bytes after the sentinel in the same window are discarded. The returned
// slice is only valid until the next call.
func (c *Codec) ReceiveRaw(addr uint16) ([]byte, error) {
	c.acc = c.acc[:0]
	for {
		clear(c.win)
		if err := c.i2c.Tx(addr, nil, c.win); err != nil {
			return nil, errcode.Wrap(errcode.Absent, "receive", err)
		}
		for _, b := range c.win {
			if b == Sentinel {
				if len(c.acc) == 0 {
					return nil, errcode.NoMessage
				}
				c.log.Trace().Uint16("addr", addr).Int("bytes", len(c.acc)).Msg("received")
				return c.acc, nil
			}
			if len(c.acc) == cap(c.acc) {
				return nil, errcode.New(errcode.Overflow, "receive", "no sentinel within max message")
			}
			c.acc = append(c.acc, b)
		}
	}
}

// -----------------------------------------------------------------------------
// Target side
// -----------------------------------------------------------------------------

// Assembler accumulates controller writes into one message body. A transfer
// consisting solely of the sentinel completes the message.
type Assembler struct {
	buf []byte
	max int
}

func NewAssembler(max int) *Assembler {
	if max <= 0 {
		max = DefaultLimits().MaxMessage
	}
	return &Assembler{buf: make([]byte, 0, max), max: max}
}

// Feed consumes one write transfer. It returns the complete body (a copy)
// when the transfer was the sentinel. Overflow discards the partial message.
func (a *Assembler) Feed(p []byte) ([]byte, bool, error) {
	if len(p) == 1 && p[0] == Sentinel {
		if len(a.buf) == 0 {
			return nil, false, errcode.NoMessage
		}
		out := append([]byte(nil), a.buf...)
		a.buf = a.buf[:0]
		return out, true, nil
	}
	if len(a.buf)+len(p) > a.max {
		a.buf = a.buf[:0]
		return nil, false, errcode.New(errcode.Overflow, "assemble", "message exceeds max")
	}
	a.buf = append(a.buf, p...)
	return nil, false, nil
}

// Pending reports the number of buffered bytes.
func (a *Assembler) Pending() int { return len(a.buf) }

// Reset drops any partial message.
func (a *Assembler) Reset() { a.buf = a.buf[:0] }

// Responder serves one loaded body across controller read windows and
// appends the sentinel after the last byte.
type Responder struct {
	body []byte
	off  int
}

// Load replaces the body being served.
func (r *Responder) Load(body []byte) {
	r.body = append(r.body[:0], body...)
	r.off = 0
}

// Busy reports whether a body is loaded and not fully served.
func (r *Responder) Busy() bool { return r.body != nil }

// Fill writes the next window into w (pre-zeroed by the bus). It returns true
// once the sentinel has been written, after which the responder is idle.
// An idle responder leaves w zeroed, which reads as an empty message.
func (r *Responder) Fill(w []byte) bool {
	if r.body == nil {
		return false
	}
	n := copy(w, r.body[r.off:])
	r.off += n
	if n < len(w) {
		w[n] = Sentinel
		r.body, r.off = nil, 0
		return true
	}
	return false
}
