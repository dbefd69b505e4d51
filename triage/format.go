package triage

import (
	"fmt"
	"strconv"
	"time"
)

var countUnits = []struct {
	size   int64
	suffix string
}{
	{1_000_000_000, "B"},
	{1_000_000, "M"},
	{1_000, "k"},
}

// HumanizeCount renders n with at most one decimal and a k/M/B suffix, e.g. 1200 -> "1.2k".
func HumanizeCount(n int) string {
	v := int64(n)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	for _, u := range countUnits {
		if v < u.size {
			continue
		}
		// truncated, so 1999 shows as "1.9k" and never "2k"
		tenths := v * 10 / u.size
		if tenths%10 == 0 {
			return fmt.Sprintf("%s%d%s", sign, tenths/10, u.suffix)
		}
		return fmt.Sprintf("%s%d.%d%s", sign, tenths/10, tenths%10, u.suffix)
	}
	return strconv.Itoa(n)
}

// DaysBetween counts whole 24h periods from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

func RelativeAge(t, now time.Time) string {
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	switch {
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	}

	days := DaysBetween(t, now)
	switch {
	case days < 30:
		return plural(days, "day")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
