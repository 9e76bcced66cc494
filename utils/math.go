package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// MetersToMM converts meters to millimeters.
func MetersToMM(m float64) float64 {
	return m * 1000
}

// MMToMeters converts millimeters to meters.
func MMToMeters(mm float64) float64 {
	return mm / 1000
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// WrapAngle maps an angle in radians into (-pi, pi].
func WrapAngle(rad float64) float64 {
	wrapped := math.Mod(rad+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// InRange reports whether v lies in the closed interval [lo, hi]. NaN is never in range.
func InRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// ScaleByPct linearly scales a duration-like magnitude n by pct in [0, 100], clamping outside values.
func ScaleByPct(n, pct float64) float64 {
	switch {
	case pct <= 0:
		return 0
	case pct >= 100:
		return n
	}
	return n * pct / 100
}
