// Package timeframe maps candle timeframe labels to durations and
// decides whether a strategy run is due for another tick.
package timeframe

import "time"

var durations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// Duration returns the wall-clock interval for a timeframe label.
// Unknown labels are a configuration error surfaced by the caller.
func Duration(label string) (time.Duration, bool) {
	d, ok := durations[label]
	return d, ok
}

// IsDue reports whether enough time has elapsed since lastRunAt for
// another tick of the given timeframe. A nil lastRunAt means the run
// has never executed and is always due. Unknown labels are never due;
// callers validate via Duration first.
func IsDue(label string, now time.Time, lastRunAt *time.Time) bool {
	d, ok := durations[label]
	if !ok {
		return false
	}
	if lastRunAt == nil {
		return true
	}
	return now.Sub(*lastRunAt) >= d
}
