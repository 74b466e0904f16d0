package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{50, 60, 900, 60},
		{910, 60, 900, 900},
		{480, 60, 900, 480},
		{5, 10, 1, 5}, // swapped bounds
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestBetweenMinSign(t *testing.T) {
	if !Between(0x49, 0x7F, 0x00) {
		t.Error("Between should be order-insensitive")
	}
	if Min(32, 6) != 6 {
		t.Error("Min")
	}
	if Sign(-7) != -1 || Sign(0) != 0 || Sign(3) != 1 {
		t.Error("Sign")
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 32, 0}, {1, 32, 1}, {32, 32, 1}, {33, 32, 2}, {7, 0, 0},
	}
	for _, c := range cases {
		if got := CeilDiv(c.a, c.b); got != c.want {
			t.Errorf("CeilDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
