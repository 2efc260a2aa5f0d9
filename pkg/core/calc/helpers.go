package calc

// safeDiv guards every ratio in this package: a zero or missing denominator
// yields 0.0, never NaN or Inf.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0.0
	}
	return a / b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
