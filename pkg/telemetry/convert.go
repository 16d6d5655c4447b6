package telemetry

import "math"

// ConvertRate normalizes a hashrate reading to MH/s, rounded to 2
// decimals. Firmware reports the unit alongside the value; an unknown
// unit passes the value through unscaled.
func ConvertRate(value float64, unit string) float64 {
	switch unit {
	case "GH":
		return Round2(value / 1_000)
	case "MH":
		return Round2(value / 1_000_000)
	default:
		return Round2(value)
	}
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MeanNonZero averages the readings, skipping zeros: a zero from a
// temperature array means the sensor slot is unpopulated, not 0 °C. When
// every reading is zero there is nothing to average and ok is false.
func MeanNonZero(xs []float64) (mean float64, ok bool) {
	var sum float64
	var n int
	for _, x := range xs {
		if x == 0 {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
