package logging

import "time"

// DurationMS renders a duration as fractional milliseconds for log fields.
func DurationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
