package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOfClassifiesChains(t *testing.T) {
	cause := errors.New("nack")
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", Overflow, Overflow},
		{"wrapped E", Wrap(Absent, "send", cause), Absent},
		{"fmt wrapped E", fmt.Errorf("discovery: %w", New(Capacity, "bind", "pool exhausted")), Capacity},
		{"fmt wrapped code", fmt.Errorf("x: %w", Malformed), Malformed},
		{"foreign", cause, Error},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.want {
			t.Errorf("%s: Of = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEUnwrapAndMessage(t *testing.T) {
	cause := errors.New("bus stuck")
	err := Wrap(Absent, "tx", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if got, want := err.Error(), "tx: absent: bus stuck"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestIsFraming(t *testing.T) {
	for _, c := range []Code{NoMessage, Overflow, Malformed} {
		if !IsFraming(Wrap(c, "recv", nil)) {
			t.Errorf("%s should be framing", c)
		}
	}
	if IsFraming(Absent) {
		t.Error("absent is transport, not framing")
	}
}
