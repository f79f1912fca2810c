package util

import (
	"math"
	"strconv"
	"time"
)

// unix values above this are treated as milliseconds (year 2286 in seconds).
const unixMillisCutoff = 1e10

// ParseTime tries RFC3339, RFC3339Nano, a bare "2006-01-02 15:04:05" and unix seconds or
// milliseconds. Results are UTC. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return FromUnixAuto(f), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns def if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FromUnixAuto converts a unix timestamp in seconds or milliseconds (fractions allowed) to UTC.
func FromUnixAuto(v float64) time.Time {
	if v > unixMillisCutoff {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// AlignToBar floors t to the start of its bar for the given bar length.
func AlignToBar(t time.Time, bar time.Duration) time.Time {
	if bar <= 0 {
		return t.Truncate(time.Minute)
	}
	return t.UTC().Truncate(bar)
}
