package similarity

import "math"

// ExpDecay maps a distance onto (0,1]: 1 at zero, approaching 0 as the
// distance grows relative to k.
func ExpDecay(distance, k float64) float64 {
	d := math.Abs(distance)
	if d == 0 {
		return 1
	}
	if k <= 0 {
		return 0
	}
	return math.Exp(-d / k)
}

// LogDistance compares magnitudes on a log10 scale so that 10 vs 20 employees
// weighs the same as 1000 vs 2000. Negative inputs are treated as 0.
func LogDistance(a, b float64) float64 {
	a, b = math.Max(a, 0), math.Max(b, 0)
	return math.Abs(math.Log10(1+a) - math.Log10(1+b))
}
