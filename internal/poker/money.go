package poker

import "math"

// Money normalizes an amount to whole cents. The value is first rounded to four decimals to absorb
// binary floating error, then floored, so rounding never creates chips.
func Money(v float64) float64 {
	if v < 0 {
		return -Money(-v)
	}
	units := math.Round(v * 10000)
	return math.Floor(units/100) / 100
}

func toCents(v float64) int64 {
	return int64(math.Round(Money(v) * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

// finite reports whether v is a usable chip amount.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
