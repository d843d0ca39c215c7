package alert

import (
	"strconv"
	"strings"
	"time"
)

// FormatBalance renders a base-unit balance as a human-scaled token amount,
// capped at 4 fractional digits with trailing zeros trimmed — ported
// straight from _examples/original_source/src/slack.rs::format_balance /
// monitor.rs::format_balance (duplicated there across two files; kept once
// here).
func FormatBalance(balance uint64, decimals uint32) string {
	divisor := uint64(1)
	for i := uint32(0); i < decimals; i++ {
		divisor *= 10
	}
	whole := balance / divisor
	frac := balance % divisor

	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}

	// render the fractional part at full precision, then cap to 4 digits
	fracStr := strconv.FormatUint(frac, 10)
	for len(fracStr) < int(decimals) {
		fracStr = "0" + fracStr
	}
	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		return strconv.FormatUint(whole, 10)
	}
	return strconv.FormatUint(whole, 10) + "." + fracStr
}

// FormatDuration renders a Go duration the way the original's alert copy
// phrases elapsed time ("for 45s", "for 3m", "for 2h15m").
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	switch {
	case h > 0:
		if m > 0 {
			return strconv.FormatInt(int64(h), 10) + "h" + strconv.FormatInt(int64(m), 10) + "m"
		}
		return strconv.FormatInt(int64(h), 10) + "h"
	case m > 0:
		return strconv.FormatInt(int64(m), 10) + "m"
	default:
		return strconv.FormatInt(int64(s), 10) + "s"
	}
}
