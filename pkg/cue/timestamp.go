package cue

import (
	"fmt"
	"time"
)

// FormatTimestamp renders d in the VTT "HH:MM:SS.mmm" form. Hours widen past
// two digits when needed. Negative durations are clamped to zero and
// sub-millisecond remainders are truncated.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// ParseTimestamp parses a "HH:MM:SS.mmm" VTT timestamp. Hours take two or
// more digits, as written by [FormatTimestamp] for sessions of 100 hours and
// beyond; minutes and seconds take exactly two and milliseconds three.
// Minutes and seconds must be below 60.
func ParseTimestamp(s string) (time.Duration, error) {
	n := len(s)
	if n < 12 || s[n-10] != ':' || s[n-7] != ':' || s[n-4] != '.' {
		return 0, fmt.Errorf("cue: timestamp %q: want HH:MM:SS.mmm", s)
	}
	h, ok1 := digits(s[:n-10])
	m, ok2 := digits(s[n-9 : n-7])
	sec, ok3 := digits(s[n-6 : n-4])
	ms, ok4 := digits(s[n-3:])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, fmt.Errorf("cue: timestamp %q: non-digit field", s)
	}
	if m >= 60 || sec >= 60 {
		return 0, fmt.Errorf("cue: timestamp %q: minutes and seconds must be below 60", s)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
