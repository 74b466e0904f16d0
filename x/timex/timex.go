package timex

import (
	"strconv"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Ms converts a millisecond count to a Duration; negative values yield 0.
func Ms[T ~int | ~int64 | ~uint32](ms T) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// FormatClock renders whole seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	m, s := seconds/60, seconds%60
	out := strconv.Itoa(m) + ":"
	if s < 10 {
		out += "0"
	}
	return out + strconv.Itoa(s)
}
