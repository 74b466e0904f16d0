package errcode

import "errors"

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Transport: the addressed peer did not acknowledge a transfer.
	Absent Code = "absent"

	// Framing.
	NoMessage Code = "no_message"
	Overflow  Code = "overflow"
	Malformed Code = "malformed"

	// Discovery / peer side.
	Capacity  Code = "capacity"
	Duplicate Code = "duplicate" // address already bound
	QueueFull Code = "queue_full"

	// Session / configuration.
	InvalidTransition Code = "invalid_transition"
	InvalidConfig     Code = "invalid_config"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap builds an *E for op with the given code and cause.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// New builds an *E for op with a short message.
func New(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// Is reports whether err carries code c anywhere in its chain.
func Is(err error, c Code) bool { return Of(err) == c }

// IsFraming reports whether err is one of the framing codes.
func IsFraming(err error) bool {
	switch Of(err) {
	case NoMessage, Overflow, Malformed:
		return true
	}
	return false
}
